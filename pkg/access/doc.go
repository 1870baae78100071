// Package access implements mtrpc's access-key/keyhole admission policy:
// render a key and a keyhole template against a per-request Context,
// then admit the request iff the keyhole pattern matches somewhere
// inside the rendered key.
package access
