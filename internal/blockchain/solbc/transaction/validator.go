// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateTransaction проверяет транзакцию перед отправкой в сеть.
func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ErrInvalidInstruction)
	}
	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}
	if err := v.ValidateInstructions(tx.Message.Instructions); err != nil {
		return err
	}
	return v.ValidateSignatures(tx)
}

// ValidateSignatures требует ровно по одной валидной подписи на каждого обязательного подписанта.
func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) == 0 || len(tx.Signatures) != required || required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: have %d signatures, message requires %d",
			ErrInvalidSignature, len(tx.Signatures), required)
	}

	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	for i, sig := range tx.Signatures {
		signer := tx.Message.AccountKeys[i]
		if sig.IsZero() || !sig.Verify(signer, content) {
			v.logger.Debug("Signature check failed", zap.Int("slot", i), zap.String("signer", signer.String()))
			return fmt.Errorf("%w: slot %d (%s)", ErrInvalidSignature, i, signer)
		}
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash.IsZero() {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(instructions []solana.CompiledInstruction) error {
	if len(instructions) == 0 {
		return ErrInvalidInstruction
	}
	return nil
}
