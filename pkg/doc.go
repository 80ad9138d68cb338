// Package pkg provides the core libraries for Lamina stackup and cutout
// processing.
//
// # Overview
//
// Lamina models PCB and package layer stackups and cuts reduced simulation
// regions out of board layouts. The pkg directory is organized into four
// main areas:
//
//  1. [stackup] - Domain logic (layer model, collection rebuilds, transforms)
//  2. [layout] - Board data (cells, nets, primitives, padstacks, stores)
//  3. [cutout] - Region extraction (extents, clipping, parallel classify)
//  4. [stackio] - Stackup file formats (CSV, JSON, control-file XML)
//
// supported by [geometry] (polygon math), [materials] (material library),
// [cache] (extent caching), [errors] (structured codes), [observability]
// (phase hooks), and [buildinfo] (version stamping).
//
// # Architecture
//
// The typical data flow through Lamina:
//
//	Stackup file / stored cell
//	         ↓
//	    [stackup] package (layer collection + transforms)
//	         ↓
//	    [cutout] package (prune → extent → classify → apply)
//	         ↓
//	    stored cell / CSV / JSON / XML output
//
// # Quick Start
//
// Build a stackup and cut a region out of a stored layout:
//
//	import (
//	    "context"
//	    "github.com/edalab/lamina/pkg/cutout"
//	    "github.com/edalab/lamina/pkg/layout"
//	    "github.com/edalab/lamina/pkg/stackup"
//	)
//
//	s := stackup.New(stackup.Laminate, nil, nil)
//	_ = s.CreateSymmetricStackup(stackup.SymmetricOptions{LayerCount: 4})
//
//	store, _ := layout.NewFileStore("cells")
//	cell, _ := store.Load(context.Background(), "board")
//
//	engine := cutout.NewEngine(store, nil, nil, nil)
//	res, _ := engine.Run(context.Background(), cell, cutout.Options{
//	    SignalNets: []string{"DDR_DQ0"},
//	    ExtentType: cutout.ConvexHull,
//	})
//	_ = res
package pkg
