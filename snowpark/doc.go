// Package snowpark is the "snowpark" connection type: Snowflake queries over
// the SQL API v2 with key-pair authentication.
//
//	[connections.snowpark]
//	account = "xy12345.eu-west-1"
//	user = "alice"
//	private_key_file = "/secrets/rsa_key.p8"
//	warehouse = "compute_wh"
//	database = "pets"
//	schema = "public"
//	role = "analyst"
//
// Each Session signs an RS256 JWT valid for 59 minutes. An expired token
// is reported as a transient error, so cached reads reset the connection,
// which signs a fresh token, and try again.
//
// Query results are cached without expiry unless a TTL is given. Numbers,
// booleans and text are converted to int64, float64, bool and string; other
// values stay in the string form Snowflake returns.
package snowpark
