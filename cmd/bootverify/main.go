// Command bootverify verifies a detached signature over an image file,
// using the same trust core the boot flow runs: the key is imported
// into the single key slot, the image is hashed through the hash
// operation engine, and the signature is checked by the verification
// dispatcher.
//
// Usage:
//
//	bootverify -key ec.pub -alg ecdsa-sha256 -image fw.bin -sig fw.sig
//
// The key file holds the raw public key encoding: an uncompressed point
// (0x04 || X || Y) for EC keys, or the PKCS#1 RSAPublicKey DER
// structure for RSA keys. The signature file holds the raw signature
// (r || s for ECDSA).
//
// Exit codes:
//
//	0  signature valid
//	1  signature invalid
//	2  usage or operational error
//	3  fatal entropy failure
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"bootcore/internal/backend"
	"bootcore/internal/config"
	"bootcore/internal/logging"
	"bootcore/internal/rng"
	"bootcore/internal/trust"
)

var (
	configPath = flag.String("config", "", "configuration file (TOML); defaults apply if empty")
	keyPath    = flag.String("key", "", "public key file (raw EC point or RSAPublicKey DER)")
	algName    = flag.String("alg", "ecdsa-sha256", "signature algorithm, e.g. ecdsa-sha256, rsa-pss-sha384")
	imagePath  = flag.String("image", "", "image file to verify")
	sigPath    = flag.String("sig", "", "detached signature file")
	entropySrc = flag.String("entropy", "", "entropy source: reader or tpm (default from config)")
	quiet      = flag.Bool("quiet", false, "suppress output; result is the exit code")
)

func main() {
	flag.Parse()
	os.Exit(run())
}

func run() int {
	if *keyPath == "" || *imagePath == "" || *sigPath == "" {
		fmt.Fprintln(os.Stderr, "bootverify: -key, -image and -sig are required")
		flag.Usage()
		return 2
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			return fail(2, "load config: %v", err)
		}
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return fail(2, "%v", err)
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		return fail(2, "%v", err)
	}
	log := logging.NewLogger(&logging.Config{Level: level, Format: format})

	alg, err := parseAlgorithm(*algName)
	if err != nil {
		return fail(2, "%v", err)
	}

	source := cfg.RNG.Source
	if *entropySrc != "" {
		source = *entropySrc
	}
	port, err := rng.Open(source, cfg.RNG.TPMDevice)
	if err != nil {
		return fail(2, "open entropy source: %v", err)
	}
	if c, ok := port.(io.Closer); ok {
		defer c.Close()
	}

	soft := backend.NewSoftware(nil)
	core, err := trust.New(cfg, trust.Options{
		Port:    port,
		Backend: soft,
		Logger:  log,
	})
	if err != nil {
		return fail(2, "build trust core: %v", err)
	}
	soft.SetRand(core.RNG())

	// Prove the entropy source before trusting any verification result;
	// the boot flow halts on entropy failure rather than proceeding
	// without its countermeasures.
	var warmup [rng.BlockSize]byte
	if err := core.Random(warmup[:], rng.Secure); err != nil {
		if rng.IsFatal(err) {
			return fail(3, "fatal entropy failure: %v", err)
		}
		return fail(2, "entropy check: %v", err)
	}

	keyBytes, err := os.ReadFile(*keyPath)
	if err != nil {
		return fail(2, "read key: %v", err)
	}
	sig, err := os.ReadFile(*sigPath)
	if err != nil {
		return fail(2, "read signature: %v", err)
	}

	keyType := backend.KeyTypeECCPublic
	if alg.Scheme.IsRSA() {
		keyType = backend.KeyTypeRSAPublic
	}
	handle, err := core.ImportKey(backend.Attributes{
		Type:  keyType,
		Alg:   alg,
		Usage: backend.UsageVerifyHash,
	}, keyBytes)
	if err != nil {
		return fail(2, "import key: %v", err)
	}

	digest, n, err := hashImage(core, alg.Hash, *imagePath)
	if err != nil {
		return fail(2, "hash image: %v", err)
	}

	if err := core.VerifyHash(handle, alg, digest[:n], sig); err != nil {
		if rng.IsFatal(err) {
			return fail(3, "fatal entropy failure: %v", err)
		}
		if errors.Is(err, backend.ErrVerifyFailed) {
			return fail(1, "signature INVALID for %s", *imagePath)
		}
		return fail(2, "verify: %v", err)
	}

	if !*quiet {
		attr, _ := core.KeyAttributes(handle)
		fmt.Printf("signature OK for %s (%s, %d-bit key)\n", *imagePath, alg, attr.Bits)
	}
	return 0
}

func hashImage(core *trust.Core, alg backend.HashAlgorithm, path string) ([]byte, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	op := core.NewHash()
	if err := op.Setup(alg); err != nil {
		return nil, 0, err
	}
	defer op.Abort()

	buf := make([]byte, 64*1024)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if err := op.Update(buf[:n]); err != nil {
				return nil, 0, err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	digest := make([]byte, alg.Size())
	n, err := op.Finish(digest)
	return digest, n, err
}

func parseAlgorithm(name string) (backend.SignatureAlgorithm, error) {
	scheme := backend.SchemeNone
	rest := ""
	switch {
	case strings.HasPrefix(name, "ecdsa-"):
		scheme, rest = backend.SchemeECDSA, strings.TrimPrefix(name, "ecdsa-")
	case strings.HasPrefix(name, "rsa-pkcs1v15-"):
		scheme, rest = backend.SchemeRSAPKCS1v15, strings.TrimPrefix(name, "rsa-pkcs1v15-")
	case strings.HasPrefix(name, "rsa-pss-"):
		scheme, rest = backend.SchemeRSAPSS, strings.TrimPrefix(name, "rsa-pss-")
	default:
		return backend.SignatureAlgorithm{}, fmt.Errorf("unknown signature algorithm %q", name)
	}

	var hash backend.HashAlgorithm
	switch rest {
	case "sha256":
		hash = backend.HashSHA256
	case "sha384":
		hash = backend.HashSHA384
	case "sha512":
		hash = backend.HashSHA512
	case "sha3-256":
		hash = backend.HashSHA3_256
	case "sha3-384":
		hash = backend.HashSHA3_384
	default:
		return backend.SignatureAlgorithm{}, fmt.Errorf("unknown hash algorithm %q", rest)
	}
	return backend.SignatureAlgorithm{Scheme: scheme, Hash: hash}, nil
}

func fail(code int, format string, args ...any) int {
	if !*quiet {
		fmt.Fprintf(os.Stderr, "bootverify: "+format+"\n", args...)
	}
	return code
}
