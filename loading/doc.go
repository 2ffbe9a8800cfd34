// Package loading defines generated types into loading namespaces.
//
// A Namespace owns one wazero runtime, a live value table and the host modules
// generated types import. Defining a type compiles its binary without running
// any of its code; the type initializes (its module is instantiated and its
// start function runs) at most once, on the first call to Type.Initialize.
// Dependencies initialize first.
//
//	ns, err := loading.New(ctx, loading.WithName("plugins"))
//	defer ns.Close(ctx)
//
//	types, err := loading.Default.Load(ctx, ns, []loading.Definition{{Name: "Sample", Bytes: bin}})
//	mod, err := types["Sample"].Initialize(ctx)
//
// Every namespace exposes the dispatch host module (DispatchModule). Generated
// code calls invoke_N with a value-table handle, a method index and N raw i64
// arguments; the handle must resolve to an Invocable.
package loading
