package codec

// Codec es un decodificador de un codec AVL identificado por su id.
type Codec interface {
	ID() byte
	Name() string
	Decode(data []byte) ([]Record, error)
	Encode(records []Record) ([]byte, error)
}

var codecs = map[byte]Codec{
	GHCodecID: NewGH(),
}

// ForID devuelve el codec registrado para el primer byte del payload.
func ForID(id byte) (Codec, bool) {
	c, ok := codecs[id]
	return c, ok
}
