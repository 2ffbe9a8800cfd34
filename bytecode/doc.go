// Package bytecode is the instruction-level surface implementations write
// method and initializer bodies against.
//
// A Code buffer collects instructions. Calls target symbolic FuncRefs handed
// out by the emission Context, because final function indices are only known
// once every import has been collected. Encode resolves them.
package bytecode
