// Package stackio provides stackup import and export in three formats.
//
// # CSV
//
// A flat table ordered top-to-bottom, one row per stackup layer:
//
//	Name,Type,Material,Dielectric_Fill,Thickness
//	TOP,signal,copper,fr4_epoxy,5e-05
//	D1,dielectric,fr4_epoxy,,0.0001
//	BOT,signal,copper,fr4_epoxy,5e-05
//
// # JSON
//
// A nested document with a materials map and a layers map. Layer order in
// the document is top-to-bottom and is preserved on import. With material
// inlining enabled, each layer carries its full material records instead of
// name references.
//
//	{
//	  "materials": {"copper": {...}, "fr4_epoxy": {...}},
//	  "layers": {
//	    "TOP": {"type": "signal", "material": "copper", ...},
//	    ...
//	  }
//	}
//
// # XML
//
// The Ansys control-file schema:
//
//	<Control>
//	  <Stackup schemaVersion="1.0">
//	    <Materials>...</Materials>
//	    <Layers LengthUnit="meter">...</Layers>
//	  </Stackup>
//	</Control>
//
// Layer type "signal" is written as "conductor" on export and mapped back on
// import. Surface roughness is attached per layer as HuraySurfaceRoughness /
// GroissSurfaceRoughness sub-elements, with Bottom and Side variants for the
// other conductor surfaces.
package stackio
