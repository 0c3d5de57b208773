package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func validProject() Project {
	return Project{
		UserID: "uid-1",
		Name:   "Lake house",
		LandArea: LandArea{
			Value: 2400,
			Unit:  "sqft",
		},
		Budget: Budget{
			Value:    150000,
			Currency: "USD",
			Category: "standard",
		},
		Location: Location{
			Type:    "international",
			Region:  "North America",
			Country: "US",
			City:    "Austin",
		},
		Status: ProjectStatusPlanning,
	}
}

func TestValidateProject(t *testing.T) {
	t.Run("valid project", func(t *testing.T) {
		p := validProject()
		require.NoError(t, Validate(p))
	})

	t.Run("unknown status", func(t *testing.T) {
		p := validProject()
		p.Status = "demolished"
		assert.Error(t, Validate(p))
	})

	t.Run("domestic location needs state", func(t *testing.T) {
		p := validProject()
		p.Location = Location{Type: "domestic", City: "Pune"}
		assert.Error(t, Validate(p))

		p.Location.State = "Maharashtra"
		assert.NoError(t, Validate(p))
	})

	t.Run("dimensions validated when present", func(t *testing.T) {
		p := validProject()
		p.LandArea.Dimensions = &Dimensions{Length: 40, Width: 0}
		assert.Error(t, Validate(p))

		p.LandArea.Dimensions.Width = 60
		assert.NoError(t, Validate(p))
	})

	t.Run("currency must be a three letter code", func(t *testing.T) {
		p := validProject()
		p.Budget.Currency = "usd"
		assert.Error(t, Validate(p))
	})
}

func TestValidateUserEmail(t *testing.T) {
	u := User{ID: "uid-1", Email: "not-an-email", Role: RoleUser}
	assert.Error(t, Validate(u))

	u.Email = "builder@example.com"
	assert.NoError(t, Validate(u))
}

func TestStringListDecodesLegacyString(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"requirements": "garage, garden ,garage,"})
	require.NoError(t, err)

	var doc struct {
		Requirements StringList `bson:"requirements"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"garage", "garden"}, doc.Requirements)
}

func TestStringListDecodesArray(t *testing.T) {
	raw, err := bson.Marshal(bson.M{"requirements": []string{"pool", "solar"}})
	require.NoError(t, err)

	var doc struct {
		Requirements StringList `bson:"requirements"`
	}
	require.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, StringList{"pool", "solar"}, doc.Requirements)
}

func TestStringListJSON(t *testing.T) {
	var body struct {
		Requirements StringList `json:"requirements"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"requirements":"garage, pool ,garage"}`), &body))
	assert.Equal(t, StringList{"garage", "pool"}, body.Requirements)

	require.NoError(t, json.Unmarshal([]byte(`{"requirements":["solar","basement"]}`), &body))
	assert.Equal(t, StringList{"solar", "basement"}, body.Requirements)

	assert.Error(t, json.Unmarshal([]byte(`{"requirements":42}`), &body))
}
