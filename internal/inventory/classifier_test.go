package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"itam-api/internal/inventory"
	"itam-api/internal/models"
)

func TestClassifier_Classify(t *testing.T) {
	c := inventory.NewClassifier(nil)

	tests := []struct {
		label string
		want  models.ItemKind
	}{
		{"Laptop", models.KindComputer},
		{"  laptop ", models.KindComputer},
		{"CPU INTEL CORE i5", models.KindComputer},
		{"cpu core i7 10th gen", models.KindComputer},
		{"Laptop Macbook AIR, NB 15S-DUI537TU", models.KindComputer},
		{"Laptop Macbook AIR", models.KindAsset},
		{"Monitor", models.KindAsset},
		{"", models.KindAsset},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.label))
		})
	}
}

func TestClassifier_CustomList(t *testing.T) {
	c := inventory.NewClassifier([]string{"Workstation", " "})

	assert.Equal(t, models.KindComputer, c.Classify("WORKSTATION"))
	assert.Equal(t, models.KindAsset, c.Classify("Laptop"))
	assert.Empty(t, c.Compound())
}

func TestClassifier_Compound(t *testing.T) {
	c := inventory.NewClassifier(inventory.DefaultComputerTypes)
	assert.Equal(t, []string{"Laptop Macbook AIR, NB 15S-DUI537TU"}, c.Compound())
}
