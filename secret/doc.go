// Package secret resolves secret references inside connection configuration.
//
// String values in a connection section may contain:
//   - `${VAR}` references, expanded strictly from the environment
//   - full references: secretref:env:PG_PASSWORD
//   - inline references, ending at whitespace: Bearer secretref:env:OPENAI_API_KEY
//
// Providers are pluggable. EnvProvider, FileProvider and AWSProvider (AWS
// Secrets Manager) are registered in DefaultRegistry under "env", "file"
// and "aws".
package secret
