package planner

import (
	"context"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int64}}, nil)

func noopExec(ctx context.Context, partition int, children []Node) (RecordBatchStream, error) {
	return &exhaustedStream{}, nil
}

func TestGenericNodeWithNewChildren(t *testing.T) {
	leaf := NewEmptyRelationNode(testSchema)
	n := NewGenericNode(KindHashAggregate, testSchema, Partitioning{Count: 1}, []Node{leaf}, noopExec)

	assert.Equal(t, KindHashAggregate, n.Kind())
	assert.Equal(t, 1, len(n.Children()))

	other := NewEmptyRelationNode(testSchema)
	replaced, err := n.WithNewChildren([]Node{other})
	require.NoError(t, err)
	assert.Same(t, other, replaced.Children()[0])
	// original is untouched
	assert.Same(t, leaf, n.Children()[0])

	_, err = n.WithNewChildren([]Node{leaf, other})
	assert.Error(t, err)
}

func TestEmptyRelationNodeIsExhausted(t *testing.T) {
	n := NewEmptyRelationNode(testSchema)
	assert.Equal(t, KindEmptyRelation, n.Kind())
	assert.Equal(t, Partitioning{Count: 1}, n.OutputPartitioning())

	stream, err := n.Execute(context.Background(), 0)
	require.NoError(t, err)
	_, err = stream.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	_, err = n.Execute(context.Background(), 1)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	leaf1 := NewEmptyRelationNode(testSchema)
	leaf2 := NewEmptyRelationNode(testSchema)
	agg := NewGenericNode(KindHashAggregate, testSchema, Partitioning{Count: 1}, []Node{leaf1, leaf2}, noopExec)

	desc := Describe(agg)
	assert.Contains(t, desc, "HashAggregate")
	assert.Contains(t, desc, "EmptyRelation")
}
