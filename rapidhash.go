package main

import (
	"encoding/binary"

	"lukechampine.com/uint128"
)

// Port of rapidhash, used for cheap stable identity keys (snapshot
// params hashes).  Not cryptographic.

const RAPID_SEED uint64 = 0xbdd89aa982704029

var rapid_secret = [3]uint64{0x2d358dccaa6c78a5, 0x8bb84b93962eacc9, 0x4b33a62ed433d4a3}

// rapid_mum computes the 64*64 -> 128 bit multiply-and-fold step.
func rapid_mum(a, b *uint64) {
	r := uint128.From64(*a)
	r = r.Mul(uint128.From64(*b))
	*a = r.Lo
	*b = r.Hi
}

func rapid_mix(a, b uint64) uint64 {
	rapid_mum(&a, &b)
	return a ^ b
}

func rapid_readSmall(p []byte, k int) uint64 {
	return uint64(p[0])<<56 | uint64(p[k>>1])<<32 | uint64(p[k-1])
}

func rapidhash_internal(key []byte, length int, seed uint64, secret [3]uint64) uint64 {
	p := key
	seed ^= rapid_mix(seed^secret[0], secret[1]) ^ uint64(length)
	var a, b uint64

	if length <= 16 {
		if length >= 4 {
			plast := length - 4
			a = uint64(binary.LittleEndian.Uint32(p))<<32 | uint64(binary.LittleEndian.Uint32(p[plast:]))
			delta := (length & 24) >> (length >> 3)
			b = uint64(binary.LittleEndian.Uint32(p[delta:]))<<32 | uint64(binary.LittleEndian.Uint32(p[plast-delta:]))
		} else if length > 0 {
			a = rapid_readSmall(p, length)
			b = 0
		} else {
			a = 0
			b = 0
		}
	} else {
		i := length
		if i > 48 {
			see1 := seed
			see2 := seed
			for i >= 48 {
				seed = rapid_mix(binary.LittleEndian.Uint64(p)^secret[0], binary.LittleEndian.Uint64(p[8:])^seed)
				see1 = rapid_mix(binary.LittleEndian.Uint64(p[16:])^secret[1], binary.LittleEndian.Uint64(p[24:])^see1)
				see2 = rapid_mix(binary.LittleEndian.Uint64(p[32:])^secret[2], binary.LittleEndian.Uint64(p[40:])^see2)
				p = p[48:]
				i -= 48
			}
			seed ^= see1 ^ see2
		}
		if i > 16 {
			seed = rapid_mix(binary.LittleEndian.Uint64(p)^secret[2], binary.LittleEndian.Uint64(p[8:])^seed^secret[1])
			if i > 32 {
				seed = rapid_mix(binary.LittleEndian.Uint64(p[16:])^secret[2], binary.LittleEndian.Uint64(p[24:])^seed)
			}
		}
		// The final mix reads the last 16 bytes of the whole key, which may
		// reach back before the current block pointer.
		a = binary.LittleEndian.Uint64(key[length-16:])
		b = binary.LittleEndian.Uint64(key[length-8:])
	}
	a ^= secret[1]
	b ^= seed
	rapid_mum(&a, &b)
	return rapid_mix(a^secret[0]^uint64(length), b^secret[1])
}

func rapidhash_withSeed(key []byte, length int, seed uint64) uint64 {
	return rapidhash_internal(key, length, seed, rapid_secret)
}

func rapidhash(key []byte, length int) uint64 {
	return rapidhash_withSeed(key, length, RAPID_SEED)
}

// / Stable 64-bit identity hash for a string key.
func HashString(s string) uint64 {
	return rapidhash([]byte(s), len(s))
}
