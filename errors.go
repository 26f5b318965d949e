package nano

import (
	"errors"

	"github.com/dangdungcntt/go-nano/encoder"
)

// Every render or configuration failure wraps one of these; use errors.Is to
// tell them apart. None of them is recoverable within a render.
var (
	ErrQuerySyntax           = errors.New("query syntax error")
	ErrUnknownDirective      = errors.New("unknown directive")
	ErrUnknownFilter         = errors.New("unknown filter")
	ErrMissingVariable       = errors.New("template variable not found")
	ErrBlockState            = errors.New("block state error")
	ErrTemplateCycle         = errors.New("template cycle")
	ErrInvalidFilterArgument = errors.New("invalid filter argument")
	ErrEncoding              = encoder.ErrInvalidEncoding
	ErrUnknownCharset        = encoder.ErrUnknownCharset
	ErrTemplateNotFound      = errors.New("template not found")
	ErrFilterNameConflict    = errors.New("filter name already in use")
	ErrFilterLocked          = errors.New("filter is locked")
	ErrInvalidPath           = errors.New("invalid path")
)

// errNotRendering is returned by the placeholder directive function bound at
// parse time; it only fires if a parsed template is executed outside a render.
var errNotRendering = errors.New("directive called outside of a render")
