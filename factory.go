// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package govvm

import (
	"github.com/luxfi/log"
)

// Factory creates new VM instances.
type Factory struct{}

// New creates a new, uninitialized VM logging to logger.
func (*Factory) New(logger log.Logger) (interface{}, error) {
	return New(logger), nil
}
