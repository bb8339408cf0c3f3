package consensus

import "crypto/ed25519"

// ValidateTransaction checks a non-coinbase transaction against utxos
// (the snapshot at the point it would be applied) and the current
// height, per spec.md §4.6, in the specified order, and returns the
// fee on success. Coinbase transactions must not be passed here — they
// are validated at the block level (ApplyBlock).
func ValidateTransaction(tx Transaction, utxos *UTXOSet, height uint64) (fee uint64, err error) {
	if len(tx.Inputs) == 0 {
		return 0, newErr(ErrMalformed, "non-coinbase transaction has no inputs")
	}

	spent := make(map[Outpoint]struct{}, len(tx.Inputs))
	var inputSum uint64
	sighash := Sighash(tx)

	for _, in := range tx.Inputs {
		if _, dup := spent[in.Prev]; dup {
			return 0, newErr(ErrDoubleSpend, "outpoint spent twice within transaction")
		}
		spent[in.Prev] = struct{}{}

		entry, ok := utxos.Get(in.Prev)
		if !ok {
			return 0, newErr(ErrMissingInput, "referenced outpoint not in utxo set")
		}

		if entry.IsCoinbase && height < entry.CreationHeight+CoinbaseMaturity {
			return 0, newErr(ErrImmature, "spent coinbase output has not matured")
		}

		if SHA256(in.Pubkey[:]) != entry.PubkeyHash {
			return 0, newErr(ErrWrongKey, "input pubkey does not match spent output")
		}

		if !ed25519.Verify(in.Pubkey[:], sighash[:], in.Signature[:]) {
			return 0, newErr(ErrBadSig, "signature verification failed")
		}

		var overflow bool
		inputSum, overflow = addUint64(inputSum, entry.Value)
		if overflow {
			return 0, newErr(ErrValue, "input value overflow")
		}
	}

	var outputSum uint64
	for _, out := range tx.Outputs {
		var overflow bool
		outputSum, overflow = addUint64(outputSum, out.Value)
		if overflow {
			return 0, newErr(ErrValue, "output value overflow")
		}
	}

	if inputSum < outputSum {
		return 0, newErr(ErrValue, "outputs exceed inputs")
	}
	return inputSum - outputSum, nil
}

func addUint64(a, b uint64) (sum uint64, overflow bool) {
	sum = a + b
	return sum, sum < a
}
