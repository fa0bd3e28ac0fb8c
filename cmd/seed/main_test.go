package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadFixture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "restaurants.json")
	fixture := `[
		{
			"name": "Saffron House",
			"address": "5 Brigade Road, Bengaluru",
			"opening": "12:00",
			"closing": "23:00",
			"images": ["https://images.example.com/saffron/1.jpg"],
			"slots": [
				{"slot": "19:00", "capacity": 6},
				{"slot": "20:00", "capacity": 4}
			]
		}
	]`
	assert.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))

	got, err := loadFixture(path)
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, "Saffron House", got[0].Name)
	assert.Equal(t, []seedSlot{{"19:00", 6}, {"20:00", 4}}, got[0].Slots)
}

func TestLoadFixtureRejectsBadInput(t *testing.T) {
	_, err := loadFixture(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	assert.NoError(t, os.WriteFile(empty, []byte(`[]`), 0o600))
	_, err = loadFixture(empty)
	assert.Error(t, err)
}
