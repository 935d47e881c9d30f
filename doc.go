// Package ogawa provides a pure Go, read-only decoder for the Ogawa
// binary archive format, the on-disk backend Alembic uses to store
// animated geometric scene data (curves, polygon meshes, transforms, and
// generic bounded geometry) as a chunk graph of offset-tagged group and
// data nodes.
//
// Open an archive with [Open] over a [ByteSource] — either
// [OpenFileByteSource] (buffered file I/O) or [OpenMmapByteSource]
// (memory-mapped). Walk the object tree from [Archive.RootObject],
// inspect each object's property tree via [Object.Properties], and
// classify recognised object shapes with [ClassifySchema].
//
//	src, err := ogawa.OpenMmapByteSource("scene.abc")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer src.Close()
//
//	archive, err := ogawa.Open(src)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	root, err := archive.RootObject()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for i := 0; i < root.ChildCount(); i++ {
//		child, err := root.Child(src, i)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		kind, err := ogawa.ClassifySchema(src, child)
//		if errors.Is(err, ogawa.ErrIncompatibleSchema) {
//			continue // not a recognised schema; just a plain object
//		} else if err != nil {
//			log.Fatal(err)
//		}
//
//		switch kind {
//		case ogawa.SchemaCurves:
//			curves, err := ogawa.NewCurves(src, child)
//			if err != nil {
//				log.Fatal(err)
//			}
//			positions, err := curves.LoadPositions(src, 0)
//			if err != nil {
//				log.Fatal(err)
//			}
//			fmt.Println(positions)
//		}
//	}
//
// Properties are accessed by their tagged-variant [Property] interface;
// use [AsCompound], [AsScalar], or [AsArray] to recover the concrete type.
// Every property's samples are time-indexed and deduplicated in storage:
// [ScalarProperty.IsConstant] and [ArrayProperty.IsConstant] report
// whether every logical sample loads identical bytes.
//
// This package is entirely read-only. A [ByteSource] is not safe for
// concurrent use; callers decoding in parallel should open one ByteSource
// per goroutine. Writing archives, mutating decoded data, and
// asynchronous/streaming decode are out of scope.
package ogawa
