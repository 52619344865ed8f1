package writer

// MemWriter keeps every encoded report in memory.
type MemWriter struct {
	Reports [][]byte
}

// WriteReport encodes v and appends it to Reports.
func (w *MemWriter) WriteReport(v any) error {
	data, err := Encode(v)
	if err != nil {
		return err
	}
	w.Reports = append(w.Reports, data)
	return nil
}

// Last returns the most recent report, or nil.
func (w *MemWriter) Last() []byte {
	if len(w.Reports) == 0 {
		return nil
	}
	return w.Reports[len(w.Reports)-1]
}
