// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

var (
	ErrEmptySecret  = errors.New("empty secret key")
	ErrNotASigner   = errors.New("wallet is not a required signer of the transaction")
	ErrSignatureLen = errors.New("unexpected number of signature slots")
)

// Wallet представляет кошелёк Solana, подписывающий транзакции флайвила.
// Создаётся заново на каждый запуск и нигде не сохраняется.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт кошелёк из секрета. Поддерживаются base58-строка
// (формат Phantom) и JSON-массив байт (формат solana-keygen).
func NewWallet(secret string) (*Wallet, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrEmptySecret
	}

	var (
		privateKeyBytes []byte
		err             error
	)
	if strings.HasPrefix(secret, "[") {
		privateKeyBytes, err = decodeJSONKey(secret)
	} else {
		privateKeyBytes, err = base58.Decode(secret)
		if err != nil {
			err = fmt.Errorf("failed to decode private key: %w", err)
		}
	}
	if err != nil {
		return nil, err
	}

	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

func decodeJSONKey(secret string) ([]byte, error) {
	var raw []int
	if err := json.Unmarshal([]byte(secret), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON private key: %w", err)
	}
	out := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("invalid byte %d at index %d in JSON private key", v, i)
		}
		out[i] = byte(v)
	}
	return out, nil
}

// SignTransaction подписывает транзакцию ключом кошелька.
//
// Работает одинаково для транзакций, собранных локально (слоты подписей пусты),
// и для готовых транзакций от внешних сервисов (слоты заполнены нулями):
// подпись кладётся ровно в слот этого кошелька, повторная подпись
// перезаписывает тот же слот, а не добавляет новый.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	if tx == nil {
		return errors.New("nil transaction")
	}

	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: message requires %d signatures", ErrSignatureLen, required)
	}

	slot := -1
	for i, key := range tx.Message.AccountKeys[:required] {
		if key.Equals(w.PublicKey) {
			slot = i
			break
		}
	}
	if slot < 0 {
		return ErrNotASigner
	}

	switch len(tx.Signatures) {
	case 0:
		tx.Signatures = make([]solana.Signature, required)
	case required:
	default:
		return fmt.Errorf("%w: expected %d, got %d", ErrSignatureLen, required, len(tx.Signatures))
	}

	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	sig, err := w.PrivateKey.Sign(content)
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}
	tx.Signatures[slot] = sig
	return nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}
