package backend

// HashAlgorithm identifies a digest computed by the backend.
type HashAlgorithm int

const (
	HashNone HashAlgorithm = iota
	HashSHA256
	HashSHA384
	HashSHA512
	HashSHA3_256
	HashSHA3_384
)

// String returns a human-readable name for the hash algorithm.
func (a HashAlgorithm) String() string {
	switch a {
	case HashSHA256:
		return "sha256"
	case HashSHA384:
		return "sha384"
	case HashSHA512:
		return "sha512"
	case HashSHA3_256:
		return "sha3-256"
	case HashSHA3_384:
		return "sha3-384"
	default:
		return "none"
	}
}

// Size returns the digest length in bytes, or 0 for HashNone.
func (a HashAlgorithm) Size() int {
	switch a {
	case HashSHA256, HashSHA3_256:
		return 32
	case HashSHA384, HashSHA3_384:
		return 48
	case HashSHA512:
		return 64
	default:
		return 0
	}
}

// Scheme identifies a signature scheme family.
type Scheme int

const (
	SchemeNone Scheme = iota
	SchemeRSAPKCS1v15
	SchemeRSAPSS
	SchemeECDSA
)

// String returns a human-readable name for the scheme.
func (s Scheme) String() string {
	switch s {
	case SchemeRSAPKCS1v15:
		return "rsa-pkcs1v15"
	case SchemeRSAPSS:
		return "rsa-pss"
	case SchemeECDSA:
		return "ecdsa"
	default:
		return "none"
	}
}

// IsRSA reports whether the scheme belongs to the RSA family.
func (s Scheme) IsRSA() bool {
	return s == SchemeRSAPKCS1v15 || s == SchemeRSAPSS
}

// IsECDSA reports whether the scheme belongs to the ECDSA family.
func (s Scheme) IsECDSA() bool {
	return s == SchemeECDSA
}

// SignatureAlgorithm pairs a signature scheme with the digest it signs.
type SignatureAlgorithm struct {
	Scheme Scheme
	Hash   HashAlgorithm
}

// String returns a human-readable name like "ecdsa-sha256".
func (a SignatureAlgorithm) String() string {
	return a.Scheme.String() + "-" + a.Hash.String()
}

// KeyType identifies the family of a stored key.
type KeyType int

const (
	KeyTypeNone KeyType = iota
	KeyTypeRSAPublic
	KeyTypeECCPublic
)

// String returns a human-readable name for the key type.
func (t KeyType) String() string {
	switch t {
	case KeyTypeRSAPublic:
		return "rsa-public"
	case KeyTypeECCPublic:
		return "ecc-public"
	default:
		return "none"
	}
}

// IsPublic reports whether the key type holds public material only.
func (t KeyType) IsPublic() bool {
	return t == KeyTypeRSAPublic || t == KeyTypeECCPublic
}

// IsRSA reports whether the key type belongs to the RSA family.
func (t KeyType) IsRSA() bool { return t == KeyTypeRSAPublic }

// IsECC reports whether the key type belongs to the elliptic curve family.
func (t KeyType) IsECC() bool { return t == KeyTypeECCPublic }

// Usage is a bitmask of operations a key is allowed to perform.
type Usage uint32

const (
	// UsageVerifyHash permits verifying a signature over a precomputed hash.
	UsageVerifyHash Usage = 1 << iota
	// UsageVerifyMessage permits verifying a signature over a full message.
	UsageVerifyMessage
	// UsageExport permits exporting the (public) key material.
	UsageExport
)

// Attributes describes a stored key: its family, bit size, the signature
// algorithm it is intended for, and its usage policy.
type Attributes struct {
	Type  KeyType
	Bits  int
	Alg   SignatureAlgorithm
	Usage Usage
}
