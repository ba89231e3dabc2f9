package cron

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryOrdersAndDeduplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Add(&testJob{name: "b"}, nil, &testJob{name: "a"}))
	require.Equal(t, 2, reg.Len())

	var seen []string
	reg.each(func(j Job) { seen = append(seen, j.Name()) })
	require.Equal(t, []string{"b", "a"}, seen)

	require.ErrorContains(t, reg.Add(&testJob{name: "a"}), `"a" registered twice`)
	require.Equal(t, 2, reg.Len())
}
