// Copyright (c) 2026 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package probe

import "context"

// Option is used to set probe server's options.
type Option interface {
	SetOption(*Server)
}

type readinessCheckOption struct {
	check func(context.Context) error
}

func (o *readinessCheckOption) SetOption(s *Server) { s.check = o.check }

// WithReadinessCheck makes a ready server fail readiness while check returns an error.
func WithReadinessCheck(check func(context.Context) error) Option {
	return &readinessCheckOption{check}
}
