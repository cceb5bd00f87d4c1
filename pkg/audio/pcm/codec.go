package pcm

// EncodeInt16LE encodes samples as little-endian int16 bytes.
func EncodeInt16LE(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// DecodeInt16LE decodes little-endian int16 bytes into samples.
// A trailing odd byte is dropped.
func DecodeInt16LE(data []byte) []int16 {
	n := len(data) / 2
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(data[i*2]) | int16(data[i*2+1])<<8
	}
	return samples
}
