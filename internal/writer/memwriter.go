package writer

// MemWriter captures output bytes in memory.
type MemWriter struct {
	Buf []byte
}

// WriteAll stores a copy of buf.
func (w *MemWriter) WriteAll(buf []byte) error {
	w.Buf = append(w.Buf[:0], buf...)
	return nil
}
