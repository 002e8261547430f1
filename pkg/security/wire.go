package security

import (
	"encoding/json"

	"github.com/aliciabus/alicia/pkg/errs"
)

func encodeWireEnvelope(env wireEnvelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, errs.Wrap(errs.KindInternal, "encode wire envelope", err)
	}
	return data, nil
}

func decodeWireEnvelope(data []byte) (wireEnvelope, error) {
	var env wireEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return wireEnvelope{}, errs.Wrap(errs.KindValidation, "decode wire envelope", err)
	}
	if len(env.WrappedKey) == 0 || len(env.Nonce) == 0 || len(env.Ciphertext) == 0 {
		return wireEnvelope{}, errs.New(errs.KindValidation, "wire envelope missing fields")
	}
	return env, nil
}
