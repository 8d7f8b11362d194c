package protocol

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

const (
	DIGEST_SIZE = 32
	//Upper bound of a decompressed descriptor, guards against decompression bombs.
	MAX_DESCRIPTOR_SIZE = 4 << 20
)

var ErrDigestMismatch = errors.New("envelope digest mismatch")

// Envelope carries an encoded descriptor across the wire. The payload is the
// lz4 compressed gob encoding and the digest is the SHA3-256 of the payload.
type Envelope struct {
	Kind    Kind
	Payload []byte
	Digest  [DIGEST_SIZE]byte
}

type descriptorHolder struct {
	Descriptor Descriptor
}

func Seal(descriptor Descriptor) (Envelope, error) {
	if descriptor == nil {
		return Envelope{}, errors.Wrap(ErrMalformedDescriptor, "nothing to seal")
	}

	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(descriptorHolder{descriptor}); err != nil {
		return Envelope{}, errors.Wrap(err, "encode descriptor")
	}

	var compressed bytes.Buffer
	zw := lz4.NewWriter(&compressed)
	if _, err := zw.Write(encoded.Bytes()); err != nil {
		return Envelope{}, errors.Wrap(err, "compress descriptor")
	}
	if err := zw.Close(); err != nil {
		return Envelope{}, errors.Wrap(err, "compress descriptor")
	}

	payload := compressed.Bytes()
	return Envelope{
		Kind:    descriptor.Kind(),
		Payload: payload,
		Digest:  sha3.Sum256(payload),
	}, nil
}

// Verify checks the payload against its digest without decoding it.
func (envelope Envelope) Verify() error {
	if len(envelope.Payload) == 0 {
		return errors.Wrap(ErrMalformedDescriptor, "empty envelope")
	}
	if sha3.Sum256(envelope.Payload) != envelope.Digest {
		return ErrDigestMismatch
	}
	return nil
}

// Open verifies, decompresses and decodes the descriptor. The decoded
// descriptor must match the envelope kind.
func (envelope Envelope) Open() (Descriptor, error) {
	if err := envelope.Verify(); err != nil {
		return nil, err
	}

	zr := lz4.NewReader(bytes.NewReader(envelope.Payload))
	decompressed, err := io.ReadAll(io.LimitReader(zr, MAX_DESCRIPTOR_SIZE+1))
	if err != nil {
		return nil, errors.Wrap(ErrMalformedDescriptor, err.Error())
	}
	if len(decompressed) > MAX_DESCRIPTOR_SIZE {
		return nil, errors.Wrap(ErrMalformedDescriptor, "descriptor exceeds size limit")
	}

	var holder descriptorHolder
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(&holder); err != nil {
		return nil, errors.Wrap(ErrMalformedDescriptor, err.Error())
	}
	if holder.Descriptor == nil {
		return nil, errors.Wrap(ErrMalformedDescriptor, "envelope holds no descriptor")
	}
	if holder.Descriptor.Kind() != envelope.Kind {
		return nil, errors.Wrapf(ErrMalformedDescriptor, "envelope kind %v holds %v", envelope.Kind, holder.Descriptor.Kind())
	}

	return holder.Descriptor, nil
}

func (envelope Envelope) String() string {
	return fmt.Sprintf("%v envelope %x (%d bytes)", envelope.Kind, envelope.Digest[0:8], len(envelope.Payload))
}
