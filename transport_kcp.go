// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package streamkit

import (
	"crypto/sha1"
	"log"

	kcp "github.com/xtaci/kcp-go/v5"
	"golang.org/x/crypto/pbkdf2"
)

// kcpSalt is the PBKDF2 salt used while deriving the shared session key,
// matching kcptun's SALT constant so a streamkit KCP transport can
// interoperate with a kcptun-derived key schedule.
const kcpSalt = "kcp-go"

// DeriveKey turns a pre-shared passphrase into a 32-byte key via
// PBKDF2-HMAC-SHA1, ported from kcptun/server/main.go's key derivation
// step (4096 iterations, 32-byte output).
func DeriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), []byte(kcpSalt), 4096, 32, sha1.New)
}

// cryptMethod names one cipher family available to the KCP transport: its
// registry name, the key size its constructor requires (0 means "use the
// whole derived key, however long it is"), and the constructor itself.
type cryptMethod struct {
	name    string
	keySize int
	build   func(key []byte) (kcp.BlockCrypt, error)
}

// cryptRegistry lists the cipher families kcp-go provides, in the same
// order and with the same key sizes as kcptun's CRYPT_METHODS. Unlike
// std/crypt.go, this is an ordered slice rather than a map -- streamkit has
// no need for map-style random access by name (lookupCryptMethod is the
// only reader), and a slice keeps the entries in a fixed, reviewable order
// (strongest/most specific ciphers first, "null" last). The order does not
// affect fallback: SelectBlockCrypt always falls back to AES.
var cryptRegistry = []cryptMethod{
	{"aes-128-gcm", 16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESGCMCrypt(key) }},
	{"aes-128", 16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	{"aes-192", 24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewAESBlockCrypt(key) }},
	{"sm4", 16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSM4BlockCrypt(key) }},
	{"3des", 24, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTripleDESBlockCrypt(key) }},
	{"cast5", 16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewCast5BlockCrypt(key) }},
	{"tea", 16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTEABlockCrypt(key) }},
	{"xtea", 16, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewXTEABlockCrypt(key) }},
	{"blowfish", 0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewBlowfishBlockCrypt(key) }},
	{"twofish", 0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewTwofishBlockCrypt(key) }},
	{"salsa20", 0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSalsa20BlockCrypt(key) }},
	{"xor", 0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewSimpleXORBlockCrypt(key) }},
	{"none", 0, func(key []byte) (kcp.BlockCrypt, error) { return kcp.NewNoneBlockCrypt(key) }},
	{"null", 0, func(key []byte) (kcp.BlockCrypt, error) { return nil, nil }},
}

// lookupCryptMethod finds a cryptMethod by its registry name.
func lookupCryptMethod(name string) (cryptMethod, bool) {
	for _, m := range cryptRegistry {
		if m.name == name {
			return m, true
		}
	}
	return cryptMethod{}, false
}

// truncatedKey applies a cipher's required key size to a derived key,
// replacing the duplicated "if keySize > 0 && long enough, slice it" check
// kcptun's SelectBlockCrypt repeats inline -- every entry in cryptRegistry
// goes through this one helper instead.
func truncatedKey(key []byte, keySize int) []byte {
	if keySize > 0 && len(key) >= keySize {
		return key[:keySize]
	}
	return key
}

// SelectBlockCrypt translates a human readable cipher name into a concrete
// kcp.BlockCrypt, falling back to AES (and reporting the effective name)
// when the requested cipher fails to construct or is unknown.
func SelectBlockCrypt(method string, pass []byte) (kcp.BlockCrypt, string) {
	m, ok := lookupCryptMethod(method)
	if !ok {
		block, err := kcp.NewAESBlockCrypt(pass)
		if err != nil {
			log.Printf("streamkit: crypt: failed to create default aes cipher: %v", err)
		}
		return block, "aes"
	}

	block, err := m.build(truncatedKey(pass, m.keySize))
	if err != nil {
		log.Printf("streamkit: crypt: failed to create %s cipher: %v, falling back to aes", method, err)
		block, _ = kcp.NewAESBlockCrypt(pass)
		return block, "aes"
	}
	return block, method
}

// KCPOptions configures the optional KCP/UDP transport.
type KCPOptions struct {
	DataShard    int
	ParityShard  int
	TCPEmulation bool // linux only; ignored elsewhere, see transport_kcp_*.go
}

// DefaultKCPOptions mirrors kcptun's CLI defaults for erasure coding.
func DefaultKCPOptions() KCPOptions {
	return KCPOptions{DataShard: 10, ParityShard: 3}
}
