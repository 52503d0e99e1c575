package protocol

// Encryptor is the subset of crypto/aesgcm.Unit the codec depends on, kept
// narrow so tests can supply a fake.
type Encryptor interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

// Codec packs VpnPackets into encrypted wire frames and back, composing the
// plaintext layout (wire.go) with an Encryptor.
type Codec struct {
	enc Encryptor
}

func NewCodec(enc Encryptor) *Codec {
	return &Codec{enc: enc}
}

// Pack serializes packet to plaintext and encrypts it.
func (c *Codec) Pack(p VpnPacket) ([]byte, error) {
	return c.enc.Encrypt(p.MarshalPlaintext())
}

// Unpack decrypts data and parses the resulting plaintext.
func (c *Codec) Unpack(data []byte) (VpnPacket, error) {
	plaintext, err := c.enc.Decrypt(data)
	if err != nil {
		return VpnPacket{}, err
	}
	return UnmarshalPlaintext(plaintext)
}
