// Package files is the "files" connection type: reads from the local disk
// or cloud object storage behind one FileSystem interface.
//
// The protocol key selects the backend and defaults to "file":
//
//	file    local disk, paths relative to the optional root key
//	s3      Amazon S3 or an S3-compatible endpoint
//	gcs     Google Cloud Storage
//	azure   Azure Blob Storage
//
// The s3, gcs and azure tags are shortcuts that preset the protocol and
// use a config section of the same name:
//
//	[connections.s3]
//	region = "eu-west-1"
//	key = "${AWS_ACCESS_KEY_ID}"
//	secret = "${AWS_SECRET_ACCESS_KEY}"
//
// Cloud paths are "bucket/key" or "s3://bucket/key"; a default_bucket
// (default_container for azure) lets callers pass bare keys.
//
// ReadText, ReadBytes, ReadCSV and ReadJSON cache their results without
// expiry unless a TTL is given. Cached values are shared between callers and
// must not be modified.
package files
