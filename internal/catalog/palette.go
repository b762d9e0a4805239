package catalog

import "hash/fnv"

// palette is used for benchmarks that don't carry their own color.
var palette = []string{
	"#2563eb", // blue
	"#e11d48", // pink
	"#10b981", // green
	"#7c3aed", // purple
	"#f97316", // orange
	"#06b6d4", // cyan
	"#ef4444", // red
	"#f59e0b", // amber
	"#3b82f6", // light blue
	"#14b8a6", // teal
}

// ColorFor picks a stable palette color from the FNV-1a hash of id.
func ColorFor(id string) string {
	if id == "" {
		return palette[0]
	}
	h := fnv.New32a()
	h.Write([]byte(id))
	return palette[h.Sum32()%uint32(len(palette))]
}
