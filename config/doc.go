// Package config resolves named connection configuration.
//
// Configuration lives in `[connections.<name>]` tables. A Store looks
// sections up by name; TOMLStore reads them from one or more TOML files with
// later files overriding earlier ones, EnvStore reads them from environment
// variables, and Layered stacks stores. Resolver applies the connection
// type's default name, expands secret references, and merges caller
// overrides on top.
//
// A missing section is not an error. Backends that can run without
// configuration, such as the local filesystem, receive an empty Section.
package config
