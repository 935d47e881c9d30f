package ogawa

import "encoding/binary"

// le is the byte order used throughout the archive format. Unlike the
// TDMS format this decoder was grounded on, Ogawa is little-endian only
// (per spec, "little-endian throughout") so there's no per-file byte
// order to thread through every read call.
var le = binary.LittleEndian
