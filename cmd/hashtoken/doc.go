// Command hashtoken produces and checks bcrypt hashes for the clip-worker
// API token.
//
// Usage:
//
//	hashtoken <command>
//
// Commands:
//
//	generate  Create a random token and print it together with its hash.
//	hash      Read a token (twice, without echo) and print its hash.
//	verify    Read a token and check it against API_TOKEN_HASH.
//
// The printed hash is the value to put in API_TOKEN_HASH. When stdin is not
// a terminal the token is read from the first line of input, so the
// command can be used in scripts:
//
//	echo "$TOKEN" | hashtoken hash
//
// Environment:
//
//	API_TOKEN_HASH - Hash checked by the verify command
//	HASH_COST      - bcrypt cost for new hashes (default: 10)
package main
