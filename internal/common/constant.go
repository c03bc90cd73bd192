package common

// DefaultRemotePrefix is the key prefix under which encrypted objects are
// placed in every backend namespace.
const DefaultRemotePrefix = "objects/"
