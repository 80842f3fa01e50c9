package inventory

import (
	"strings"

	"itam-api/internal/models"
)

// DefaultComputerTypes are the type labels imported as computers. The last
// entry combines two model names in one comma-containing label. It is kept as
// a single label until the inventory owners confirm whether it is a typo.
var DefaultComputerTypes = []string{
	"CPU",
	"CPU CORE i7 10th GEN",
	"CPU INTEL CORE i5",
	"Laptop",
	"Laptop Macbook AIR, NB 15S-DUI537TU",
}

// Classifier routes type labels to an item kind using a case-insensitive
// allow-list of computer labels.
type Classifier struct {
	labels   map[string]string
	compound []string
}

// NewClassifier builds a classifier. An empty list falls back to DefaultComputerTypes.
func NewClassifier(computerTypes []string) *Classifier {
	if len(computerTypes) == 0 {
		computerTypes = DefaultComputerTypes
	}
	c := &Classifier{labels: make(map[string]string, len(computerTypes))}
	for _, label := range computerTypes {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		c.labels[strings.ToLower(label)] = label
		if strings.Contains(label, ",") {
			c.compound = append(c.compound, label)
		}
	}
	return c
}

// Classify returns KindComputer for allow-listed labels and KindAsset otherwise.
func (c *Classifier) Classify(typeLabel string) models.ItemKind {
	if _, ok := c.labels[strings.ToLower(strings.TrimSpace(typeLabel))]; ok {
		return models.KindComputer
	}
	return models.KindAsset
}

// Compound lists allow-list entries containing a comma.
func (c *Classifier) Compound() []string {
	return append([]string(nil), c.compound...)
}
