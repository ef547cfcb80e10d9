package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"philcali.me/foodgram/internal/data"
	"philcali.me/foodgram/internal/exceptions"
)

type EncryptMode func(cipher.Block) (cipher.AEAD, error)

// EncryptionTokenMarshaler seals page tokens with a key derived from the
// scope so a token issued for one listing cannot be replayed on another.
type EncryptionTokenMarshaler struct {
	Mode EncryptMode
}

func NewGCM() *EncryptionTokenMarshaler {
	return &EncryptionTokenMarshaler{
		Mode: cipher.NewGCM,
	}
}

type sealedToken struct {
	Ciphertext string `json:"ciphertext"`
	Nonce      string `json:"nonce"`
}

func lastKeyToToken(lastKey map[string]types.AttributeValue) ([]byte, error) {
	if len(lastKey) == 0 {
		return nil, nil
	}
	token := make(data.NextToken, len(lastKey))
	for key, value := range lastKey {
		innerMap := make(map[string]string, 1)
		switch v := value.(type) {
		case *types.AttributeValueMemberS:
			innerMap["S"] = v.Value
		case *types.AttributeValueMemberN:
			innerMap["N"] = v.Value
		case *types.AttributeValueMemberB:
			innerMap["B"] = base64.StdEncoding.EncodeToString(v.Value)
		}
		token[key] = innerMap
	}
	return json.Marshal(token)
}

func tokenToLastKey(token []byte) (map[string]types.AttributeValue, error) {
	var nextToken data.NextToken
	if err := json.Unmarshal(token, &nextToken); err != nil {
		return nil, err
	}
	lastKey := make(map[string]types.AttributeValue, len(nextToken))
	for field, innerMap := range nextToken {
		if sv, ok := innerMap["S"]; ok {
			lastKey[field] = &types.AttributeValueMemberS{Value: sv}
		}
		if nv, ok := innerMap["N"]; ok {
			lastKey[field] = &types.AttributeValueMemberN{Value: nv}
		}
		if bv, ok := innerMap["B"]; ok {
			raw, err := base64.StdEncoding.DecodeString(bv)
			if err != nil {
				return nil, err
			}
			lastKey[field] = &types.AttributeValueMemberB{Value: raw}
		}
	}
	return lastKey, nil
}

func (em *EncryptionTokenMarshaler) aead(scope string) (cipher.AEAD, error) {
	hash := sha256.Sum256([]byte(scope))
	key, err := aes.NewCipher(hash[:])
	if err != nil {
		return nil, err
	}
	return em.Mode(key)
}

func (em *EncryptionTokenMarshaler) Marshal(scope string, lastKey map[string]types.AttributeValue) (*string, error) {
	serialized, err := lastKeyToToken(lastKey)
	if err != nil || serialized == nil {
		return nil, err
	}
	aesgcm, err := em.aead(scope)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(sealedToken{
		Ciphertext: hex.EncodeToString(aesgcm.Seal(nil, nonce, serialized, nil)),
		Nonce:      hex.EncodeToString(nonce),
	})
	if err != nil {
		return nil, err
	}
	return aws.String(base64.URLEncoding.EncodeToString(payload)), nil
}

func (em *EncryptionTokenMarshaler) Unmarshal(scope string, token *string) (map[string]types.AttributeValue, error) {
	if token == nil || len(*token) == 0 {
		return nil, nil
	}
	decoded, err := base64.URLEncoding.DecodeString(*token)
	if err != nil {
		return nil, exceptions.InvalidInput("nextToken is malformed")
	}
	var payload sealedToken
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, exceptions.InvalidInput("nextToken is malformed")
	}
	aesgcm, err := em.aead(scope)
	if err != nil {
		return nil, err
	}
	ciphertext, cerr := hex.DecodeString(payload.Ciphertext)
	nonce, nerr := hex.DecodeString(payload.Nonce)
	if err := errors.Join(cerr, nerr); err != nil || len(nonce) != aesgcm.NonceSize() {
		return nil, exceptions.InvalidInput("nextToken is malformed")
	}
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, exceptions.InvalidInput("nextToken was not issued for this listing")
	}
	return tokenToLastKey(plaintext)
}
