// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package governance

import (
	"errors"
	"math"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
)

const codecVersion = 0

// Codec encodes every record the engine persists.
var Codec codec.Manager

func init() {
	c := linearcodec.NewDefault()
	Codec = codec.NewManager(math.MaxInt)

	err := errors.Join(
		c.RegisterType(&Proposal{}),
		c.RegisterType(&Event{}),
		Codec.RegisterCodec(codecVersion, c),
	)
	if err != nil {
		panic(err)
	}
}
