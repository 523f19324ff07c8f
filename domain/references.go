// references.go - Feste Referenzpunkte im FFHQ-Koordinatenraum
package domain

// ReferencePoint ist ein beschrifteter Punkt im 2D-Plot
type ReferencePoint struct {
	X, Y  float64
	Label string
}

// celebReferences sind die Projektionen bekannter Gesichter auf die ersten
// beiden FFHQ-PCA-Achsen
var celebReferences = []ReferencePoint{
	{2.014, -3.259, "sohee"},
	{2.044, -7.233, "irene"},
	{-0.451, -0.840, "jennie"},
	{4.177, 1.085, "jimin"},
	{2.902, 2.730, "jihoon"},
	{5.982, 0.288, "suhyeon"},
	{0.561, 0.290, "naeun"},
	{3.144, -2.822, "suzy"},
	{7.077, -2.917, "top"},
	{3.388, 0.995, "hun"},
}
