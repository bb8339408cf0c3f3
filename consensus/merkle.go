package consensus

// MerkleRoot computes the ordered, pairwise double-SHA-256 root over a
// transaction list's leaf hashes (txids). The first transaction
// (coinbase) is leaf 0; order matters. An empty list yields the
// 32-byte zero hash, matching the degenerate-chain case exercised by
// tests but never a valid block (spec.md §4.7 requires a non-empty,
// coinbase-first list).
func MerkleRoot(txs []Transaction) Hash {
	if len(txs) == 0 {
		return Hash{}
	}
	leaves := make([]Hash, len(txs))
	for i, tx := range txs {
		leaves[i] = Txid(tx)
	}
	return merkleRootFromLeaves(leaves)
}

// MerkleRootFromTxids computes the same root directly from already
// computed txids, avoiding re-serializing transactions.
func MerkleRootFromTxids(txids []Hash) Hash {
	if len(txids) == 0 {
		return Hash{}
	}
	return merkleRootFromLeaves(txids)
}

func merkleRootFromLeaves(level []Hash) Hash {
	level = append([]Hash(nil), level...)
	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				// Odd level: duplicate the last element.
				next = append(next, hashPair(level[i], level[i]))
				continue
			}
			next = append(next, hashPair(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}

func hashPair(a, b Hash) Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, a[:]...)
	buf = append(buf, b[:]...)
	return DoubleSHA256(buf)
}
