package repository

import (
	"errors"
	"fmt"

	"agro-crm/internal/models"

	"gorm.io/gorm"
)

// Removed reports what an ownership cascade deleted. PhotoKeys are the object
// storage keys to clean up once the transaction commits.
type Removed struct {
	VisitIDs    []uint
	PlantingIDs []uint
	Counts      map[string]int
	PhotoKeys   []string
}

func newRemoved() *Removed {
	return &Removed{Counts: map[string]int{}}
}

func (r *Removed) add(entity string, n int) {
	if n > 0 {
		r.Counts[entity] += n
	}
}

// All cascade functions must run inside a transaction; tx is used for every statement.

func DeleteClient(tx *gorm.DB, id uint) (*Removed, error) {
	rm := newRemoved()

	var propertyIDs []uint
	if err := tx.Model(&models.Property{}).Where("client_id = ?", id).Pluck("id", &propertyIDs).Error; err != nil {
		return nil, err
	}
	for _, pid := range propertyIDs {
		if err := deleteProperty(tx, pid, rm); err != nil {
			return nil, err
		}
	}
	if err := deleteVisitsWhere(tx, rm, "client_id = ?", id); err != nil {
		return nil, err
	}

	res := tx.Where("client_id = ?", id).Delete(&models.Opportunity{})
	if res.Error != nil {
		return nil, fmt.Errorf("delete opportunities: %w", res.Error)
	}
	rm.add("opportunities", int(res.RowsAffected))

	if err := deleteRow(tx, &models.Client{}, id, "clients", rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func DeleteProperty(tx *gorm.DB, id uint) (*Removed, error) {
	rm := newRemoved()
	if err := deleteProperty(tx, id, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func deleteProperty(tx *gorm.DB, id uint, rm *Removed) error {
	var plotIDs []uint
	if err := tx.Model(&models.Plot{}).Where("property_id = ?", id).Pluck("id", &plotIDs).Error; err != nil {
		return err
	}
	for _, pid := range plotIDs {
		if err := deletePlot(tx, pid, rm); err != nil {
			return err
		}
	}
	if err := deleteVisitsWhere(tx, rm, "property_id = ?", id); err != nil {
		return err
	}
	return deleteRow(tx, &models.Property{}, id, "properties", rm)
}

func DeletePlot(tx *gorm.DB, id uint) (*Removed, error) {
	rm := newRemoved()
	if err := deletePlot(tx, id, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func deletePlot(tx *gorm.DB, id uint, rm *Removed) error {
	var plantingIDs []uint
	if err := tx.Model(&models.Planting{}).Where("plot_id = ?", id).Pluck("id", &plantingIDs).Error; err != nil {
		return err
	}
	for _, pid := range plantingIDs {
		if err := deletePlanting(tx, pid, rm); err != nil {
			return err
		}
	}
	if err := deleteVisitsWhere(tx, rm, "plot_id = ?", id); err != nil {
		return err
	}
	return deleteRow(tx, &models.Plot{}, id, "plots", rm)
}

func DeletePlanting(tx *gorm.DB, id uint) (*Removed, error) {
	rm := newRemoved()
	if err := deletePlanting(tx, id, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func deletePlanting(tx *gorm.DB, id uint, rm *Removed) error {
	if err := deleteVisitsWhere(tx, rm, "planting_id = ?", id); err != nil {
		return err
	}
	if err := deleteRow(tx, &models.Planting{}, id, "plantings", rm); err != nil {
		return err
	}
	rm.PlantingIDs = append(rm.PlantingIDs, id)
	return nil
}

// DeleteVisits removes the visits with their photos and products. Plot-less
// plantings left without any visit are removed too, so no planting dangles.
func DeleteVisits(tx *gorm.DB, ids []uint) (*Removed, error) {
	rm := newRemoved()
	if len(ids) == 0 {
		return rm, nil
	}
	if err := deleteVisitsWhere(tx, rm, "id IN ?", ids); err != nil {
		return nil, err
	}
	return rm, nil
}

func deleteVisitsWhere(tx *gorm.DB, rm *Removed, query string, args ...any) error {
	var visits []models.Visit
	if err := tx.Select("id", "planting_id").Where(query, args...).Find(&visits).Error; err != nil {
		return fmt.Errorf("find visits: %w", err)
	}
	if len(visits) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(visits))
	plantings := map[uint]struct{}{}
	for _, v := range visits {
		ids = append(ids, v.ID)
		if v.PlantingID != nil {
			plantings[*v.PlantingID] = struct{}{}
		}
	}

	var keys []string
	if err := tx.Model(&models.Photo{}).Where("visit_id IN ? AND object_key <> ''", ids).Pluck("object_key", &keys).Error; err != nil {
		return fmt.Errorf("collect photo keys: %w", err)
	}
	rm.PhotoKeys = append(rm.PhotoKeys, keys...)

	res := tx.Where("visit_id IN ?", ids).Delete(&models.Photo{})
	if res.Error != nil {
		return fmt.Errorf("delete photos: %w", res.Error)
	}
	rm.add("photos", int(res.RowsAffected))

	res = tx.Where("visit_id IN ?", ids).Delete(&models.VisitProduct{})
	if res.Error != nil {
		return fmt.Errorf("delete products: %w", res.Error)
	}
	rm.add("products", int(res.RowsAffected))

	res = tx.Where("id IN ?", ids).Delete(&models.Visit{})
	if res.Error != nil {
		return fmt.Errorf("delete visits: %w", res.Error)
	}
	rm.add("visits", int(res.RowsAffected))
	rm.VisitIDs = append(rm.VisitIDs, ids...)

	return dropOrphanPlantings(tx, rm, plantings)
}

func dropOrphanPlantings(tx *gorm.DB, rm *Removed, candidates map[uint]struct{}) error {
	for id := range candidates {
		var p models.Planting
		err := tx.Select("id", "plot_id").First(&p, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		if p.PlotID != nil {
			continue
		}
		var left int64
		if err := tx.Model(&models.Visit{}).Where("planting_id = ?", id).Count(&left).Error; err != nil {
			return err
		}
		if left > 0 {
			continue
		}
		if err := deleteRow(tx, &models.Planting{}, id, "plantings", rm); err != nil {
			return err
		}
		rm.PlantingIDs = append(rm.PlantingIDs, id)
	}
	return nil
}

func deleteRow(tx *gorm.DB, model any, id uint, entity string, rm *Removed) error {
	res := tx.Delete(model, id)
	if res.Error != nil {
		return fmt.Errorf("delete %s %d: %w", entity, id, res.Error)
	}
	rm.add(entity, int(res.RowsAffected))
	return nil
}
