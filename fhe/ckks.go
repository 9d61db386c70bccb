// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/lattice/v7/core/rlwe"
	"github.com/luxfi/lattice/v7/schemes/ckks"
	"github.com/luxfi/log"
)

const (
	ciphertextCacheSize = 1024

	// ciphertext record header: type, flags, constant
	recordHeaderLen = 10

	flagConstant    = 1 << 0
	flagSignEncoded = 1 << 1
)

var (
	_ Backend = (*Processor)(nil)

	configKey    = []byte("ckksConfig")
	secretKeyKey = []byte("secretKey")

	errNotCanonical   = errors.New("condition is not a canonical encrypted boolean")
	errConfigMismatch = errors.New("CKKS parameters differ from the persisted ones")
)

// CKKSConfig holds the CKKS parameters of a [Processor]. They are fixed
// once the processor has been opened over a database.
type CKKSConfig struct {
	// LogN is the ring degree (log2).
	LogN int `json:"logN"`

	// LogQ is the ciphertext modulus chain (bits per level)
	LogQ []int `json:"logQ"`

	// LogP is the special modulus for key-switching
	LogP []int `json:"logP"`

	// LogDefaultScale is the default encoding scale
	LogDefaultScale int `json:"logDefaultScale"`
}

// DefaultCKKSConfig returns parameters with one multiplicative level to
// spare, enough for tallies whose counts stay well below 2^10 at level 0.
func DefaultCKKSConfig() CKKSConfig {
	return CKKSConfig{
		LogN:            13,
		LogQ:            []int{55, 45, 45},
		LogP:            []int{61},
		LogDefaultScale: 45,
	}
}

// ciphertext is one value held by the processor.
type ciphertext struct {
	typ EncryptedType
	ct  *rlwe.Ciphertext

	// constant is set for trivially encrypted public constants, letting
	// Select avoid a multiplication when both branches are known.
	constant *uint64

	// signEncoded booleans carry a - b and are true when that is positive.
	// They decrypt correctly but cannot drive a Select.
	signEncoded bool
}

// bytes encodes c as 1 byte type, 1 byte flags, the 8 byte big endian
// constant and the serialized ciphertext.
func (c *ciphertext) bytes() ([]byte, error) {
	ctBytes, err := c.ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ciphertext: %w", err)
	}

	b := make([]byte, recordHeaderLen, recordHeaderLen+len(ctBytes))
	b[0] = byte(c.typ)
	if c.constant != nil {
		b[1] |= flagConstant
		binary.BigEndian.PutUint64(b[2:recordHeaderLen], *c.constant)
	}
	if c.signEncoded {
		b[1] |= flagSignEncoded
	}
	return append(b, ctBytes...), nil
}

func parseCiphertext(b []byte) (*ciphertext, error) {
	if len(b) <= recordHeaderLen {
		return nil, fmt.Errorf("malformed ciphertext record of length %d", len(b))
	}
	c := &ciphertext{
		typ:         EncryptedType(b[0]),
		ct:          new(rlwe.Ciphertext),
		signEncoded: b[1]&flagSignEncoded != 0,
	}
	if b[1]&flagConstant != 0 {
		constant := binary.BigEndian.Uint64(b[2:recordHeaderLen])
		c.constant = &constant
	}
	if err := c.ct.UnmarshalBinary(b[recordHeaderLen:]); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ciphertext: %w", err)
	}
	return c, nil
}

// Processor is the CKKS backend. Integers are encoded in the first slot of
// a CKKS plaintext; decoding rounds to the nearest integer. The secret key,
// the parameters and every ciphertext are kept in the database the
// processor was opened over, so handles survive a restart.
type Processor struct {
	log    log.Logger
	config CKKSConfig

	params    ckks.Parameters
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor
	decryptor *rlwe.Decryptor
	evaluator *ckks.Evaluator

	acl      *ACL
	proofKey []byte

	mu          sync.Mutex
	ciphertexts database.Database
	meta        database.Database
	seq         uint64
	cache       cache.Cacher[ids.ID, *ciphertext]
}

// NewProcessor opens (or initializes) a CKKS processor over db. The first
// open generates the secret key; later opens reload it and must use the
// same config.
func NewProcessor(logger log.Logger, config CKKSConfig, db database.Database, clock Clock) (*Processor, error) {
	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            config.LogN,
		LogQ:            config.LogQ,
		LogP:            config.LogP,
		LogDefaultScale: config.LogDefaultScale,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create CKKS parameters: %w", err)
	}

	meta := prefixdb.New(metaPrefix, db)
	if err := checkConfig(meta, config); err != nil {
		return nil, err
	}
	kgen := rlwe.NewKeyGenerator(params.Parameters)
	sk, err := loadSecretKey(meta, params, kgen)
	if err != nil {
		return nil, err
	}
	pk := kgen.GenPublicKeyNew(sk)
	rlk := kgen.GenRelinearizationKeyNew(sk)
	evk := rlwe.NewMemEvaluationKeySet(rlk)

	proofKey, err := loadProofKey(meta)
	if err != nil {
		return nil, err
	}
	seq, err := database.GetUInt64(meta, seqKey)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load handle sequence: %w", err)
	}

	p := &Processor{
		log:         logger,
		config:      config,
		params:      params,
		encoder:     ckks.NewEncoder(params),
		encryptor:   rlwe.NewEncryptor(params.Parameters, pk),
		decryptor:   rlwe.NewDecryptor(params.Parameters, sk),
		evaluator:   ckks.NewEvaluator(params, evk),
		acl:         NewACL(prefixdb.New(permitPrefix, db), clock),
		proofKey:    proofKey,
		ciphertexts: prefixdb.New(ciphertextPrefix, db),
		meta:        meta,
		seq:         seq,
		cache:       lru.NewCache[ids.ID, *ciphertext](ciphertextCacheSize),
	}

	logger.Info("CKKS processor initialized",
		log.Int("logN", config.LogN),
		log.Int("levels", len(config.LogQ)),
		log.Int("slots", params.MaxSlots()),
		log.Uint64("handles", seq),
	)
	return p, nil
}

func checkConfig(meta database.Database, config CKKSConfig) error {
	configBytes, err := json.Marshal(config)
	if err != nil {
		return err
	}
	stored, err := meta.Get(configKey)
	switch {
	case errors.Is(err, database.ErrNotFound):
		if err := meta.Put(configKey, configBytes); err != nil {
			return fmt.Errorf("failed to store CKKS parameters: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to load CKKS parameters: %w", err)
	case !slices.Equal(stored, configBytes):
		return fmt.Errorf("%w: have %s, opened with %s", errConfigMismatch, stored, configBytes)
	default:
		return nil
	}
}

// loadSecretKey returns the persisted secret key, generating it on first use.
func loadSecretKey(meta database.Database, params ckks.Parameters, kgen *rlwe.KeyGenerator) (*rlwe.SecretKey, error) {
	skBytes, err := meta.Get(secretKeyKey)
	if err == nil {
		sk := rlwe.NewSecretKey(params.Parameters)
		if err := sk.UnmarshalBinary(skBytes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal secret key: %w", err)
		}
		return sk, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load secret key: %w", err)
	}

	sk := kgen.GenSecretKeyNew()
	skBytes, err = sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal secret key: %w", err)
	}
	if err := meta.Put(secretKeyKey, skBytes); err != nil {
		return nil, fmt.Errorf("failed to store secret key: %w", err)
	}
	return sk, nil
}

// ACL exposes the permit table.
func (p *Processor) ACL() *ACL {
	return p.acl
}

func (p *Processor) TrivialEncrypt(value uint64, t EncryptedType) (ids.ID, error) {
	if err := checkPlaintext(value, t); err != nil {
		return ids.Empty, err
	}
	ct, err := p.encrypt(value)
	if err != nil {
		return ids.Empty, err
	}
	constant := value
	return p.put(&ciphertext{typ: t, ct: ct, constant: &constant})
}

func (p *Processor) EncryptInput(value uint64, t EncryptedType, sender common.Address) (Input, error) {
	if err := checkPlaintext(value, t); err != nil {
		return Input{}, err
	}
	ct, err := p.encrypt(value)
	if err != nil {
		return Input{}, err
	}
	handle, err := p.put(&ciphertext{typ: t, ct: ct})
	if err != nil {
		return Input{}, err
	}
	return Input{
		Handle: handle,
		Type:   t,
		Proof:  inputProof(p.proofKey, handle, t, sender),
	}, nil
}

func (p *Processor) VerifyInput(input ids.ID, proof []byte, sender common.Address, t EncryptedType) (ids.ID, error) {
	c, err := p.get(input)
	if err != nil {
		return ids.Empty, err
	}
	if c.typ != t {
		return ids.Empty, fmt.Errorf("%w: input is %s, expected %s", ErrTypeMismatch, c.typ, t)
	}
	if err := verifyInputProof(p.proofKey, input, t, sender, proof); err != nil {
		return ids.Empty, err
	}
	return input, nil
}

// Add performs homomorphic addition. CKKS does not wrap: callers keep sums
// inside the width of the type.
func (p *Processor) Add(a, b ids.ID) (ids.ID, error) {
	x, y, err := p.getIntegers(a, b)
	if err != nil {
		return ids.Empty, err
	}
	out, err := p.evaluator.AddNew(x.ct, y.ct)
	if err != nil {
		return ids.Empty, fmt.Errorf("add failed: %w", err)
	}
	return p.put(&ciphertext{typ: x.typ, ct: out})
}

// Select computes ifFalse + cond*(ifTrue-ifFalse). When both branches are
// public constants one apart this is a plain addition or subtraction of
// cond and consumes no level.
func (p *Processor) Select(cond, ifTrue, ifFalse ids.ID) (ids.ID, error) {
	c, err := p.get(cond)
	if err != nil {
		return ids.Empty, err
	}
	if c.typ != EBool {
		return ids.Empty, fmt.Errorf("%w: select condition is %s", ErrTypeMismatch, c.typ)
	}
	if c.signEncoded {
		return ids.Empty, errNotCanonical
	}
	x, err := p.get(ifTrue)
	if err != nil {
		return ids.Empty, err
	}
	y, err := p.get(ifFalse)
	if err != nil {
		return ids.Empty, err
	}
	if x.typ != y.typ {
		return ids.Empty, fmt.Errorf("%w: select branches are %s and %s", ErrTypeMismatch, x.typ, y.typ)
	}

	var out *rlwe.Ciphertext
	switch {
	case x.constant != nil && y.constant != nil && *x.constant == *y.constant:
		out, err = p.encrypt(*x.constant)
	case x.constant != nil && y.constant != nil && *x.constant == *y.constant+1:
		// y + cond
		out = c.ct.CopyNew()
		err = p.evaluator.Add(out, float64(*y.constant), out)
	case x.constant != nil && y.constant != nil && *x.constant+1 == *y.constant:
		// y - cond
		out = c.ct.CopyNew()
		p.neg(out)
		err = p.evaluator.Add(out, float64(*y.constant), out)
	default:
		out, err = p.mulSelect(c.ct, x.ct, y.ct)
	}
	if err != nil {
		return ids.Empty, fmt.Errorf("select failed: %w", err)
	}
	return p.put(&ciphertext{typ: x.typ, ct: out})
}

func (p *Processor) mulSelect(cond, ifTrue, ifFalse *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	level := min(cond.Level(), ifTrue.Level(), ifFalse.Level())
	if level < 1 {
		return nil, errors.New("insufficient levels for multiplication")
	}

	diff, err := p.evaluator.SubNew(ifTrue, ifFalse)
	if err != nil {
		return nil, err
	}
	prod, err := p.evaluator.MulRelinNew(cond, diff)
	if err != nil {
		return nil, err
	}
	if err := p.evaluator.Rescale(prod, prod); err != nil {
		return nil, err
	}
	return p.evaluator.AddNew(prod, ifFalse)
}

// GreaterThan returns a sign-encoded boolean holding a - b. For integer
// operands the difference is at least 1 exactly when a > b, which is how
// Decrypt reads it.
func (p *Processor) GreaterThan(a, b ids.ID) (ids.ID, error) {
	x, y, err := p.getIntegers(a, b)
	if err != nil {
		return ids.Empty, err
	}
	out, err := p.evaluator.SubNew(x.ct, y.ct)
	if err != nil {
		return ids.Empty, fmt.Errorf("gt failed: %w", err)
	}
	return p.put(&ciphertext{typ: EBool, ct: out, signEncoded: true})
}

func (p *Processor) Allow(handle ids.ID, grantee, grantor common.Address, expiry uint64) error {
	if _, err := p.get(handle); err != nil {
		return err
	}
	return p.acl.Grant(handle, grantee, grantor, PermitOpDecrypt, expiry)
}

func (p *Processor) Decrypt(handle ids.ID, requester common.Address) (Plaintext, error) {
	if err := p.acl.Check(handle, requester, PermitOpDecrypt); err != nil {
		return Plaintext{}, err
	}
	c, err := p.get(handle)
	if err != nil {
		return Plaintext{}, err
	}

	pt := ckks.NewPlaintext(p.params, c.ct.Level())
	p.decryptor.Decrypt(c.ct, pt)
	values := make([]float64, p.params.MaxSlots())
	if err := p.encoder.Decode(pt, values); err != nil {
		return Plaintext{}, fmt.Errorf("failed to decode: %w", err)
	}
	return Plaintext{Type: c.typ, Value: decodeSlot(values[0], c)}, nil
}

func decodeSlot(v float64, c *ciphertext) uint64 {
	switch {
	case c.signEncoded:
		if v > 0.5 {
			return 1
		}
		return 0
	case c.typ == EBool:
		if v >= 0.5 {
			return 1
		}
		return 0
	case v <= 0:
		return 0
	case v >= float64(c.typ.MaxValue()):
		return c.typ.MaxValue()
	default:
		return uint64(math.Round(v))
	}
}

func (p *Processor) encrypt(value uint64) (*rlwe.Ciphertext, error) {
	values := make([]float64, p.params.MaxSlots())
	values[0] = float64(value)

	pt := ckks.NewPlaintext(p.params, p.params.MaxLevel())
	if err := p.encoder.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("failed to encode: %w", err)
	}
	ct := ckks.NewCiphertext(p.params, 1, p.params.MaxLevel())
	if err := p.encryptor.Encrypt(pt, ct); err != nil {
		return nil, fmt.Errorf("failed to encrypt: %w", err)
	}
	return ct, nil
}

// neg negates ct in place by negating its polynomial coefficients.
func (p *Processor) neg(ct *rlwe.Ciphertext) {
	ringQ := p.params.RingQ().AtLevel(ct.Level())
	for i := range ct.Value {
		ringQ.Neg(ct.Value[i], ct.Value[i])
	}
}

func (p *Processor) put(c *ciphertext) (ids.ID, error) {
	record, err := c.bytes()
	if err != nil {
		return ids.Empty, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	preimage := binary.BigEndian.AppendUint64(append([]byte{}, p.proofKey...), p.seq)
	handle := ids.ID(hash.ComputeHash256Array(preimage))

	if err := p.ciphertexts.Put(handle[:], record); err != nil {
		return ids.Empty, fmt.Errorf("failed to store ciphertext: %w", err)
	}
	if err := database.PutUInt64(p.meta, seqKey, p.seq); err != nil {
		return ids.Empty, fmt.Errorf("failed to store handle sequence: %w", err)
	}
	p.cache.Put(handle, c)
	return handle, nil
}

func (p *Processor) get(handle ids.ID) (*ciphertext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.cache.Get(handle); ok {
		return c, nil
	}
	record, err := p.ciphertexts.Get(handle[:])
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ciphertext: %w", err)
	}
	c, err := parseCiphertext(record)
	if err != nil {
		return nil, err
	}
	p.cache.Put(handle, c)
	return c, nil
}

func (p *Processor) getIntegers(a, b ids.ID) (*ciphertext, *ciphertext, error) {
	x, err := p.get(a)
	if err != nil {
		return nil, nil, err
	}
	y, err := p.get(b)
	if err != nil {
		return nil, nil, err
	}
	if x.typ != y.typ || x.typ == EBool {
		return nil, nil, fmt.Errorf("%w: %s and %s", ErrTypeMismatch, x.typ, y.typ)
	}
	return x, y, nil
}
