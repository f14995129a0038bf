// Package variant implements the forward-compatible enum representation used
// across module boundaries.
//
// A Value pairs a discriminant with raw payload bytes laid out exactly as the
// enum's descriptor commits: fixed discriminant width, fixed payload region
// sized to the cap declared at interface-definition time. Because the payload
// region never grows at runtime, a library may append variants in a minor
// release without changing the type's size, and an older consumer can still
// carry the value around opaquely.
//
// Consumers inspect the discriminant first. Decode returns a Known value when
// the reader's descriptor declares the variant, and an Unknown value carrying
// the raw discriminant and payload otherwise; it never guesses a structure
// for payloads it cannot interpret.
package variant
