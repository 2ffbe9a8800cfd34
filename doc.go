// Package dyntype builds new types at run time and loads them into
// isolated wazero namespaces.
//
// A type is described with a fluent, immutable builder, compiled into a
// WebAssembly module and defined in a loading namespace. Runtime-bound
// state such as Go callbacks and live values reaches the loaded type
// through initializers.
//
// # Architecture Overview
//
//	dyntype/             Factory wiring configuration, logging and strategies
//	├── description/     Type references, modifiers, member tokens, finalized types
//	├── matcher/         Member predicates and latent matchers
//	├── scaffold/        Instrumented types, initializers, transformers
//	├── implementation/  Method bodies: constants, fields, delegates, super calls
//	├── attribute/       Annotation and custom-section writers
//	├── registry/        Field and method registries with last-wins compilation
//	├── bytecode/        Instruction builder and emission context
//	├── emit/            Module writer and the dyntype.type descriptor
//	├── dynamic/         Builder, made types, resolution strategies, persistence
//	├── nexus/           Process-wide initializer dispatch
//	├── loading/         Namespaces and loading strategies
//	├── resource/        Live value table
//	├── config/          YAML and environment configuration
//	└── errors/          Structured error types
//
// # Quick Start
//
//	f, err := dyntype.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	dt, err := f.Builder().Name("app.Greeter").
//	    DefineMethod("answer", description.Int, description.Public).
//	    Intercept(implementation.Value(42)).
//	    Make()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ns, err := f.Namespace(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ns.Close(ctx)
//
//	loaded, err := dt.Load(ctx, ns, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := loaded.Call(ctx, "answer")
//	fmt.Println(v) // 42
//
// # Initializers
//
// Under the passive strategy initializers run right after loading. Under
// the active strategy the type's start function asks the nexus for its
// initializer, so it also runs when the binary is loaded by other means.
// Types built actively import the dyntype:nexus host module and must be
// loaded into a namespace where it is bound.
//
// # Thread Safety
//
// Builders and made types are immutable and safe to share. Namespaces and
// the nexus are safe for concurrent use.
package dyntype
