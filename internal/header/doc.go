// Package header encodes and decodes the three ZIP record types: the local
// file header, the central directory record, and the end of central
// directory record.
//
// The codec is stateless. All multi-byte integers are little-endian and all
// variable-length fields (name, extra, comment) follow the fixed prefix in
// that order, as the format mandates.
package header
