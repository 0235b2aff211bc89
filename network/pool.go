package network

import "sync"

var bytePool = sync.Pool{New: func() interface{} { return []byte(nil) }}

func allocBytes(size int) []byte {
	bs := bytePool.Get().([]byte)
	if cap(bs) < size {
		bs = make([]byte, size)
	}
	return bs[:size]
}

func freeBytes(bs []byte) {
	bytePool.Put(bs[:0])
}

// encodeMessage encodes msg into a pooled buffer. The caller must freeBytes the result.
func encodeMessage(msg message) ([]byte, error) {
	bs := allocBytes(0)
	out, err := wireEncode(bs, msg)
	if err != nil {
		freeBytes(bs)
		return nil, err
	}
	return out, nil
}
