// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/crypto/hash"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/ids"
	"github.com/luxfi/log"
)

var (
	_ Backend = (*Coprocessor)(nil)

	ciphertextPrefix = []byte("ct:")
	permitPrefix     = []byte("pm:")
	metaPrefix       = []byte("mt:")

	seqKey = []byte("seq")
)

// OpCode represents an operation executed by a backend
type OpCode uint8

const (
	OpTrivialEncrypt OpCode = iota
	OpEncryptInput
	OpVerifyInput
	OpAdd
	OpSelect
	OpGt
	OpDecrypt
)

// String returns the operation name
func (op OpCode) String() string {
	names := []string{
		"trivial_encrypt", "encrypt_input", "verify_input",
		"add", "select", "gt", "decrypt",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "unknown"
}

// entry is the coprocessor's record for one handle: 1 byte type followed by
// the 8 byte big endian value.
type entry struct {
	typ   EncryptedType
	value uint64
}

func (e entry) bytes() []byte {
	b := make([]byte, 9)
	b[0] = byte(e.typ)
	binary.BigEndian.PutUint64(b[1:], e.value)
	return b
}

func parseEntry(b []byte) (entry, error) {
	if len(b) != 9 {
		return entry{}, fmt.Errorf("malformed ciphertext entry of length %d", len(b))
	}
	return entry{
		typ:   EncryptedType(b[0]),
		value: binary.BigEndian.Uint64(b[1:]),
	}, nil
}

// Coprocessor is a trusted reference backend. It keeps the value behind each
// handle in its own database and only releases one through Decrypt, to an
// address holding a permit. It is what tests and single-operator deployments
// run against.
type Coprocessor struct {
	log log.Logger

	mu          sync.Mutex
	ciphertexts database.Database
	meta        database.Database
	acl         *ACL
	proofKey    []byte
	seq         uint64

	opCount map[OpCode]uint64
}

// NewCoprocessor opens (or initializes) a coprocessor over db.
func NewCoprocessor(logger log.Logger, db database.Database, clock Clock) (*Coprocessor, error) {
	meta := prefixdb.New(metaPrefix, db)
	key, err := loadProofKey(meta)
	if err != nil {
		return nil, err
	}
	seq, err := database.GetUInt64(meta, seqKey)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("failed to load handle sequence: %w", err)
	}

	return &Coprocessor{
		log:         logger,
		ciphertexts: prefixdb.New(ciphertextPrefix, db),
		meta:        meta,
		acl:         NewACL(prefixdb.New(permitPrefix, db), clock),
		proofKey:    key,
		seq:         seq,
		opCount:     make(map[OpCode]uint64),
	}, nil
}

// ACL exposes the permit table.
func (c *Coprocessor) ACL() *ACL {
	return c.acl
}

// OpCount returns how many times op has run.
func (c *Coprocessor) OpCount(op OpCode) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.opCount[op]
}

func (c *Coprocessor) TrivialEncrypt(value uint64, t EncryptedType) (ids.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := checkPlaintext(value, t); err != nil {
		return ids.Empty, err
	}
	c.opCount[OpTrivialEncrypt]++
	return c.store(entry{typ: t, value: value})
}

func (c *Coprocessor) EncryptInput(value uint64, t EncryptedType, sender common.Address) (Input, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := checkPlaintext(value, t); err != nil {
		return Input{}, err
	}
	handle, err := c.store(entry{typ: t, value: value})
	if err != nil {
		return Input{}, err
	}
	c.opCount[OpEncryptInput]++
	return Input{
		Handle: handle,
		Type:   t,
		Proof:  inputProof(c.proofKey, handle, t, sender),
	}, nil
}

func (c *Coprocessor) VerifyInput(input ids.ID, proof []byte, sender common.Address, t EncryptedType) (ids.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.load(input)
	if err != nil {
		return ids.Empty, err
	}
	if e.typ != t {
		return ids.Empty, fmt.Errorf("%w: input is %s, expected %s", ErrTypeMismatch, e.typ, t)
	}
	if err := verifyInputProof(c.proofKey, input, t, sender, proof); err != nil {
		return ids.Empty, err
	}
	c.opCount[OpVerifyInput]++
	return input, nil
}

func (c *Coprocessor) Add(a, b ids.ID) (ids.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	x, y, err := c.loadIntegers(a, b)
	if err != nil {
		return ids.Empty, err
	}
	c.opCount[OpAdd]++
	return c.store(entry{typ: x.typ, value: x.typ.wrap(x.value + y.value)})
}

func (c *Coprocessor) Select(cond, ifTrue, ifFalse ids.ID) (ids.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ce, err := c.load(cond)
	if err != nil {
		return ids.Empty, err
	}
	if ce.typ != EBool {
		return ids.Empty, fmt.Errorf("%w: select condition is %s", ErrTypeMismatch, ce.typ)
	}
	te, err := c.load(ifTrue)
	if err != nil {
		return ids.Empty, err
	}
	fe, err := c.load(ifFalse)
	if err != nil {
		return ids.Empty, err
	}
	if te.typ != fe.typ {
		return ids.Empty, fmt.Errorf("%w: select branches are %s and %s", ErrTypeMismatch, te.typ, fe.typ)
	}

	chosen := fe
	if ce.value != 0 {
		chosen = te
	}
	c.opCount[OpSelect]++
	// Always a fresh handle, so the result is not linkable to either branch.
	return c.store(chosen)
}

func (c *Coprocessor) GreaterThan(a, b ids.ID) (ids.ID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	x, y, err := c.loadIntegers(a, b)
	if err != nil {
		return ids.Empty, err
	}
	var gt uint64
	if x.value > y.value {
		gt = 1
	}
	c.opCount[OpGt]++
	return c.store(entry{typ: EBool, value: gt})
}

func (c *Coprocessor) Allow(handle ids.ID, grantee, grantor common.Address, expiry uint64) error {
	has, err := c.ciphertexts.Has(handle[:])
	if err != nil {
		return err
	}
	if !has {
		return fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	return c.acl.Grant(handle, grantee, grantor, PermitOpDecrypt, expiry)
}

func (c *Coprocessor) Decrypt(handle ids.ID, requester common.Address) (Plaintext, error) {
	if err := c.acl.Check(handle, requester, PermitOpDecrypt); err != nil {
		return Plaintext{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := c.load(handle)
	if err != nil {
		return Plaintext{}, err
	}
	c.opCount[OpDecrypt]++
	c.log.Debug("ciphertext decrypted",
		log.Stringer("handle", handle),
		log.Stringer("requester", requester),
	)
	return Plaintext{Type: e.typ, Value: e.value}, nil
}

// store must be called with mu held.
func (c *Coprocessor) store(e entry) (ids.ID, error) {
	c.seq++
	preimage := binary.BigEndian.AppendUint64(append([]byte{}, c.proofKey...), c.seq)
	handle := ids.ID(hash.ComputeHash256Array(preimage))

	if err := c.ciphertexts.Put(handle[:], e.bytes()); err != nil {
		return ids.Empty, fmt.Errorf("failed to store ciphertext: %w", err)
	}
	if err := database.PutUInt64(c.meta, seqKey, c.seq); err != nil {
		return ids.Empty, fmt.Errorf("failed to store handle sequence: %w", err)
	}
	return handle, nil
}

// load must be called with mu held.
func (c *Coprocessor) load(handle ids.ID) (entry, error) {
	b, err := c.ciphertexts.Get(handle[:])
	if errors.Is(err, database.ErrNotFound) {
		return entry{}, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
	}
	if err != nil {
		return entry{}, err
	}
	return parseEntry(b)
}

func (c *Coprocessor) loadIntegers(a, b ids.ID) (entry, entry, error) {
	x, err := c.load(a)
	if err != nil {
		return entry{}, entry{}, err
	}
	y, err := c.load(b)
	if err != nil {
		return entry{}, entry{}, err
	}
	if x.typ != y.typ || x.typ == EBool {
		return entry{}, entry{}, fmt.Errorf("%w: %s and %s", ErrTypeMismatch, x.typ, y.typ)
	}
	return x, y, nil
}

func checkPlaintext(value uint64, t EncryptedType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrUnsupportedType, t)
	}
	if value > t.MaxValue() {
		return fmt.Errorf("%w: %d exceeds %s", ErrValueOutOfRange, value, t)
	}
	return nil
}
