package client

import (
	"errors"
	"testing"
	"time"

	"github.com/mdzio/go-natnet/model"
	"github.com/mdzio/go-natnet/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type modelSource struct {
	def        *model.ModelDefinition
	requestErr error
	awaitErr   error
	requests   int
}

func (s *modelSource) RequestModelDefinition() error {
	s.requests++
	return s.requestErr
}

func (s *modelSource) AwaitModelDefinition(timeout time.Duration) (*model.ModelDefinition, error) {
	if s.awaitErr != nil {
		return nil, s.awaitErr
	}
	return s.def, nil
}

func testModel() *model.ModelDefinition {
	return &model.ModelDefinition{Datasets: []model.Dataset{
		&model.MarkerSetDefinition{Name: "Head", MarkerNames: []string{"M1"}},
		&model.RigidBodyDefinition{Name: "Head", ID: 3, Markers: []model.MarkerDescriptor{}},
		&model.SkeletonDefinition{Name: "Body", ID: 1, RigidBodies: []*model.RigidBodyDefinition{
			{Name: "Hip", ID: 65537, Markers: []model.MarkerDescriptor{}},
		}},
		&model.RigidBodyDefinition{Name: "Wand", ID: 7, Markers: []model.MarkerDescriptor{}},
	}}
}

func TestModelCacheNeedsRefresh(t *testing.T) {
	now := time.Now()
	var empty *ModelCache
	assert.True(t, empty.NeedsRefresh(now, time.Second))
	assert.True(t, (&ModelCache{}).NeedsRefresh(now, time.Second))

	// no rigid bodies
	c := NewModelCache(&model.ModelDefinition{}, now)
	assert.True(t, c.NeedsRefresh(now, time.Second))

	c = NewModelCache(testModel(), now)
	assert.False(t, c.NeedsRefresh(now, time.Second))
	assert.False(t, c.NeedsRefresh(now.Add(time.Second), time.Second))
	assert.True(t, c.NeedsRefresh(now.Add(time.Second+time.Millisecond), time.Second))
}

func TestModelCacheRefresh(t *testing.T) {
	src := &modelSource{def: testModel()}
	c, err := (&ModelCache{}).Refresh(src, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]string{3: "Head", 7: "Wand"}, c.Names())
	name, ok := c.Name(7)
	assert.True(t, ok)
	assert.Equal(t, "Wand", name)
	_, ok = c.Name(65537)
	assert.False(t, ok, "skeleton members are not mapped")

	// mapping is rebuilt from scratch
	src.def = &model.ModelDefinition{Datasets: []model.Dataset{
		&model.RigidBodyDefinition{Name: "Wand2", ID: 7, Markers: []model.MarkerDescriptor{}},
	}}
	c2, err := c.Refresh(src, time.Second)
	require.NoError(t, err)
	assert.Equal(t, map[uint32]string{7: "Wand2"}, c2.Names())
	assert.Equal(t, map[uint32]string{3: "Head", 7: "Wand"}, c.Names())
}

func TestModelCacheRefreshFailure(t *testing.T) {
	before := NewModelCache(testModel(), time.Now().Add(-time.Hour))
	names := before.Names()
	refreshed := before.LastRefreshed()

	failures := []*modelSource{
		{awaitErr: ErrCommandTimeout},
		{awaitErr: &wire.UnknownDatasetTypeError{Tag: 9}},
		{requestErr: errors.New("network down")},
	}
	for _, src := range failures {
		after, err := before.Refresh(src, time.Second)
		assert.Error(t, err)
		assert.Same(t, before, after)
		assert.Equal(t, names, after.Names())
		assert.Equal(t, refreshed, after.LastRefreshed())
	}
}
