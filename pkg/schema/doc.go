/*
Package schema defines the value types carried by ports.

Every port declares a type identifier ("Float", "Transition", ...). The Registry maps
identifiers to a Type that can check and coerce values, and it is the single authority
on whether two ports may be connected. Registries are populated explicitly; nothing is
discovered by reflection.
*/
package schema
