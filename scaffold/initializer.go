package scaffold

import (
	"github.com/wippyai/dyntype/bytecode"
	"github.com/wippyai/dyntype/internal/plist"
)

// ResolvableAppender is an initializer block that refers to the type being
// built and must be told its final identity.
type ResolvableAppender interface {
	bytecode.Appender
	Resolve(identity string) bytecode.Appender
}

// TypeInitializer is the ordered list of blocks forming the type's start function.
type TypeInitializer struct {
	blocks plist.List[bytecode.Appender]
}

// Expand returns an initializer with block appended.
func (ti TypeInitializer) Expand(block bytecode.Appender) TypeInitializer {
	return TypeInitializer{blocks: ti.blocks.Append(block)}
}

// Prepend returns an initializer with block placed first.
func (ti TypeInitializer) Prepend(block bytecode.Appender) TypeInitializer {
	return TypeInitializer{blocks: plist.Of(block).Concat(ti.blocks)}
}

// Defined reports whether any block exists.
func (ti TypeInitializer) Defined() bool { return ti.blocks.Len() > 0 }

// Blocks returns the blocks in execution order.
func (ti TypeInitializer) Blocks() []bytecode.Appender { return ti.blocks.Slice() }

// Resolve substitutes identity into every resolvable block.
func (ti TypeInitializer) Resolve(identity string) TypeInitializer {
	return TypeInitializer{blocks: plist.Map(ti.blocks, func(b bytecode.Appender) bytecode.Appender {
		if r, ok := b.(ResolvableAppender); ok {
			return r.Resolve(identity)
		}
		return b
	})}
}

// Appender returns the blocks as one appender.
func (ti TypeInitializer) Appender() bytecode.Appender {
	return bytecode.Compound(ti.Blocks())
}
