package format

// Alignment utilities for the flattened device tree format.

// Align4 returns n aligned up to the next 4-byte boundary.
// Node names and property values in the structure block are padded to it.
//
// Example:
//
//	Align4(1) = 4
//	Align4(4) = 4
//	Align4(5) = 8
func Align4(n int) int {
	return (n + StructAlignment - 1) &^ (StructAlignment - 1)
}

// Align8 returns n aligned up to the next 8-byte boundary.
// The memory reservation map starts on one.
func Align8(n int) int {
	return (n + ReserveMapAlignment - 1) &^ (ReserveMapAlignment - 1)
}
