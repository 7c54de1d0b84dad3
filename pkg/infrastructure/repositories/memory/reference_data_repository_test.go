package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsinha/requisition/pkg/domain/entities"
)

func TestReferenceDataRepository_Catalog(t *testing.T) {
	ctx := context.Background()
	repo := NewReferenceDataRepository(2)
	program := uuid.New()

	orderable := entities.Orderable{ID: uuid.New(), ProductCode: "C100", NetContent: 10}
	repo.LoadApprovedProducts(program, []entities.ApprovedProduct{{ID: uuid.New(), Orderable: orderable}})

	products, err := repo.GetApprovedProducts(ctx, uuid.New(), program)
	require.NoError(t, err)
	require.Len(t, products, 1)

	loaded, err := repo.GetOrderable(ctx, orderable.ID)
	require.NoError(t, err)
	assert.Equal(t, "C100", loaded.ProductCode)

	orderable.ProductCode = "C101"
	repo.AddOrderable(orderable)
	assert.Len(t, repo.GetAllOrderables(), 1)
	loaded, err = repo.GetOrderable(ctx, orderable.ID)
	require.NoError(t, err)
	assert.Equal(t, "C101", loaded.ProductCode)

	_, err = repo.GetOrderable(ctx, uuid.New())
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestReferenceDataRepository_Lookups(t *testing.T) {
	ctx := context.Background()
	repo := NewReferenceDataRepository(0)
	program, node, facility := uuid.New(), uuid.New(), uuid.New()

	_, err := repo.GetTemplate(ctx, program)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
	repo.SaveTemplate(entities.NewRequisitionTemplate(program, nil))
	_, err = repo.GetTemplate(ctx, program)
	assert.NoError(t, err)

	repo.AddSupplyLine(entities.SupplyLine{ID: uuid.New(), SupervisoryNodeID: node, ProgramID: program})
	repo.AddSupplyLine(entities.SupplyLine{ID: uuid.New(), SupervisoryNodeID: uuid.New(), ProgramID: program})
	lines, err := repo.GetSupplyLines(ctx, node, program)
	require.NoError(t, err)
	assert.Len(t, lines, 1)

	pod, err := repo.GetProofOfDelivery(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, pod)

	balances := map[uuid.UUID]int{uuid.New(): 4}
	repo.SetStockOnHand(facility, balances)
	stock, err := repo.GetStockOnHand(ctx, facility, program)
	require.NoError(t, err)
	assert.Equal(t, balances, stock)

	stock[uuid.New()] = 1
	again, err := repo.GetStockOnHand(ctx, facility, program)
	require.NoError(t, err)
	assert.Len(t, again, 1)
}
