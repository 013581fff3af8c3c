// Package nixpkg maps manifest package names to the capabilities they
// provide and the on-disk artifacts that prove their presence. The catalog
// covers the native codec and font libraries Figdock manifests declare.
package nixpkg

import (
	"sort"
	"strings"
)

// Capability names what a package contributes to the hosted app's environment.
type Capability string

const (
	CapFontRendering     Capability = "font-rendering"
	CapColorManagement   Capability = "color-management"
	CapImageQuantization Capability = "image-quantization"
	CapJPEGCodec         Capability = "jpeg-codec"
	CapJPEG2000Codec     Capability = "jpeg2000-codec"
	CapPNGCodec          Capability = "png-codec"
	CapTIFFCodec         Capability = "tiff-codec"
	CapWebPCodec         Capability = "webp-codec"
	CapCompression       Capability = "compression"
	CapCryptCompat       Capability = "crypt-compat"
	CapTclRuntime        Capability = "tcl-runtime"
	CapTkToolkit         Capability = "tk-toolkit"
	CapPostScript        Capability = "postscript"
)

// Package describes one catalog entry and its probe hints.
type Package struct {
	Name        string
	Capability  Capability
	Description string
	// Libraries are shared-object basename prefixes to look for, e.g.
	// "libjpeg.so" matches libjpeg.so, libjpeg.so.8, libjpeg.so.8.2.2.
	Libraries []string
	// Binaries are representative executables resolvable via PATH.
	Binaries []string
}

var catalog = map[string]Package{
	"freetype": {
		Name:        "freetype",
		Capability:  CapFontRendering,
		Description: "Font rasterization used when rendering figure text",
		Libraries:   []string{"libfreetype.so"},
	},
	"lcms2": {
		Name:        "lcms2",
		Capability:  CapColorManagement,
		Description: "Little CMS color profile transforms",
		Libraries:   []string{"liblcms2.so"},
	},
	"libimagequant": {
		Name:        "libimagequant",
		Capability:  CapImageQuantization,
		Description: "Palette quantization for PNG output",
		Libraries:   []string{"libimagequant.so"},
	},
	"libjpeg": {
		Name:        "libjpeg",
		Capability:  CapJPEGCodec,
		Description: "Baseline JPEG codec",
		Libraries:   []string{"libjpeg.so"},
	},
	"libjpeg_turbo": {
		Name:        "libjpeg_turbo",
		Capability:  CapJPEGCodec,
		Description: "SIMD-accelerated JPEG codec",
		Libraries:   []string{"libjpeg.so", "libturbojpeg.so"},
		Binaries:    []string{"cjpeg", "djpeg"},
	},
	"libpng": {
		Name:        "libpng",
		Capability:  CapPNGCodec,
		Description: "PNG reference codec",
		Libraries:   []string{"libpng16.so", "libpng.so"},
	},
	"libtiff": {
		Name:        "libtiff",
		Capability:  CapTIFFCodec,
		Description: "TIFF codec",
		Libraries:   []string{"libtiff.so"},
		Binaries:    []string{"tiffinfo"},
	},
	"libwebp": {
		Name:        "libwebp",
		Capability:  CapWebPCodec,
		Description: "WebP codec",
		Libraries:   []string{"libwebp.so"},
		Binaries:    []string{"cwebp", "dwebp"},
	},
	"libxcrypt": {
		Name:        "libxcrypt",
		Capability:  CapCryptCompat,
		Description: "Extended crypt(3) compatibility library",
		Libraries:   []string{"libcrypt.so"},
	},
	"openjpeg": {
		Name:        "openjpeg",
		Capability:  CapJPEG2000Codec,
		Description: "JPEG 2000 codec",
		Libraries:   []string{"libopenjp2.so"},
		Binaries:    []string{"opj_decompress"},
	},
	"tcl": {
		Name:        "tcl",
		Capability:  CapTclRuntime,
		Description: "Tcl runtime required by Tk",
		Libraries:   []string{"libtcl8.6.so", "libtcl.so"},
		Binaries:    []string{"tclsh"},
	},
	"tk": {
		Name:        "tk",
		Capability:  CapTkToolkit,
		Description: "Tk windowing toolkit",
		Libraries:   []string{"libtk8.6.so", "libtk.so"},
		Binaries:    []string{"wish"},
	},
	"zlib": {
		Name:        "zlib",
		Capability:  CapCompression,
		Description: "DEFLATE compression used by PNG and friends",
		Libraries:   []string{"libz.so"},
	},
	"ghostscript": {
		Name:        "ghostscript",
		Capability:  CapPostScript,
		Description: "PostScript and PDF rasterizer",
		Binaries:    []string{"gs"},
	},
}

// Lookup returns the catalog entry for a manifest package name.
func Lookup(name string) (Package, bool) {
	pkg, ok := catalog[strings.TrimSpace(name)]
	return pkg, ok
}

// Known returns the catalog package names in sorted order.
func Known() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Capabilities resolves manifest package names to the sorted, deduplicated
// set of capabilities they provide. Unknown names are skipped.
func Capabilities(names []string) []Capability {
	seen := map[Capability]bool{}
	for _, name := range names {
		pkg, ok := Lookup(name)
		if !ok {
			continue
		}
		seen[pkg.Capability] = true
	}
	caps := make([]Capability, 0, len(seen))
	for capability := range seen {
		caps = append(caps, capability)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i] < caps[j] })
	return caps
}
