package probe

// BuildForgedResponseForTest exposes buildForgedResponse to the probe_test
// package, following the standard library's export_test.go convention for
// testing unexported behavior without widening the public API.
func BuildForgedResponseForTest(txid uint16, question []byte) []byte {
	return buildForgedResponse(txid, question)
}
