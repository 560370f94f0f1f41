package store

import (
	"crypto/sha1"
	"crypto/sha256"
	"hash"
)

func newSHA1() hash.Hash   { return sha1.New() }
func newSHA256() hash.Hash { return sha256.New() }
