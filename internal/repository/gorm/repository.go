package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"harvestcast/internal/models"
	"harvestcast/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Locations ---------------------------------------------------------------

func (s *Store) UpsertLocations(ctx context.Context, items []models.Location) error {
	if s == nil || s.db == nil || len(items) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"country",
			"latitude",
			"longitude",
			"population_weight",
			"timezone",
		}),
	}).Create(items).Error
}

func (s *Store) ListLocations(ctx context.Context) ([]models.Location, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Location
	if err := s.db.WithContext(ctx).
		Model(&models.Location{}).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetLocation(ctx context.Context, id string) (*models.Location, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Location
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- Cycles ------------------------------------------------------------------

func (s *Store) CreateCycle(ctx context.Context, item *models.Cycle) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetCycle(ctx context.Context, id uint64) (*models.Cycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Cycle
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetCurrentCycle(ctx context.Context) (*models.Cycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Cycle
	err := s.db.WithContext(ctx).
		Where("phase <> ?", models.PhaseResolved).
		Order("id desc").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListCycles(ctx context.Context, params repository.ListCyclesParams) ([]models.Cycle, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyCycleFilters(s.db.WithContext(ctx).Model(&models.Cycle{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "id")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Cycle
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountCycles(ctx context.Context, params repository.ListCyclesParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyCycleFilters(s.db.WithContext(ctx).Model(&models.Cycle{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyCycleFilters(query *gorm.DB, params repository.ListCyclesParams) *gorm.DB {
	if params.Phase != nil && strings.TrimSpace(*params.Phase) != "" {
		query = query.Where("phase = ?", strings.TrimSpace(*params.Phase))
	}
	if params.Settled != nil {
		query = query.Where("settled = ?", *params.Settled)
	}
	return query
}

func (s *Store) AdvanceCycleBlock(ctx context.Context, id uint64, currentBlock int64) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", id).
		Where("current_block < ?", currentBlock).
		Update("current_block", currentBlock).Error
}

func (s *Store) SetCycleLocation(ctx context.Context, id uint64, sel repository.CycleLocationUpdate) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", id).
		Where("location_id IS NULL").
		Updates(map[string]any{
			"phase":          models.PhaseRevealed,
			"location_id":    sel.LocationID,
			"selection_hash": sel.SelectionHash,
			"grid_index":     sel.GridIndex,
			"block_entropy":  sel.BlockEntropy,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) SetCycleWeather(ctx context.Context, id uint64, upd repository.CycleWeatherUpdate) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", id).
		Where("weather_score IS NULL").
		Where("weather_fetch_error IS NULL").
		Updates(map[string]any{
			"weather_score":       upd.Score,
			"weather_outlook":     upd.Outlook,
			"weather_payload":     upd.Payload,
			"weather_fetch_error": upd.FetchError,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *Store) MarkCycleResolving(ctx context.Context, id uint64) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", id).
		Where("phase <> ?", models.PhaseResolved).
		Update("phase", models.PhaseResolving)
	return res.RowsAffected > 0, res.Error
}

func (s *Store) FinalizeCycleResolution(ctx context.Context, id uint64, upd repository.CycleResolutionUpdate, record *models.ResolutionRecord) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	won := false
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&models.Cycle{}).
			Where("id = ?", id).
			Where("phase <> ?", models.PhaseResolved).
			Where("weather_outcome IS NULL").
			Updates(map[string]any{
				"phase":           models.PhaseResolved,
				"weather_outcome": string(upd.Outcome),
				"final_score":     upd.FinalScore,
				"confidence":      upd.Confidence,
				"resolved_at":     upd.ResolvedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if record != nil {
			if err := tx.Create(record).Error; err != nil {
				return err
			}
		}
		won = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return won, nil
}

func (s *Store) MarkCycleSettled(ctx context.Context, id uint64, at time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Cycle{}).
		Where("id = ?", id).
		Where("settled = ?", false).
		Updates(map[string]any{
			"settled":    true,
			"settled_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

// --- Wagers ------------------------------------------------------------------

func (s *Store) InsertWager(ctx context.Context, item *models.Wager) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetWager(ctx context.Context, id uint64) (*models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Wager
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetActiveWager(ctx context.Context, userID string, cycleID uint64) (*models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, nil
	}
	var item models.Wager
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("cycle_id = ?", cycleID).
		Where("status = ?", models.WagerActive).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListWagersByCycle(ctx context.Context, cycleID uint64, includeCancelled bool) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("cycle_id = ?", cycleID)
	if !includeCancelled {
		query = query.Where("status <> ?", models.WagerCancelled)
	}
	var items []models.Wager
	if err := query.Order("id asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListWagers(ctx context.Context, params repository.ListWagersParams) ([]models.Wager, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyWagerFilters(s.db.WithContext(ctx).Model(&models.Wager{}), params)
	query = applyOrder(query, params.OrderBy, params.Asc, "placed_at")
	limit := normalizeLimit(params.Limit, 100)
	offset := normalizeOffset(params.Offset)
	var items []models.Wager
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountWagers(ctx context.Context, params repository.ListWagersParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	query := applyWagerFilters(s.db.WithContext(ctx).Model(&models.Wager{}), params)
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func applyWagerFilters(query *gorm.DB, params repository.ListWagersParams) *gorm.DB {
	if params.UserID != nil && strings.TrimSpace(*params.UserID) != "" {
		query = query.Where("user_id = ?", strings.TrimSpace(*params.UserID))
	}
	if params.CycleID != nil {
		query = query.Where("cycle_id = ?", *params.CycleID)
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("status = ?", strings.TrimSpace(*params.Status))
	}
	return query
}

func (s *Store) SettleWager(ctx context.Context, id uint64, payout decimal.Decimal, winner bool, at time.Time) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.Wager{}).
		Where("id = ?", id).
		Where("status = ?", models.WagerActive).
		Updates(map[string]any{
			"status":     models.WagerSettled,
			"payout":     payout,
			"winner":     winner,
			"settled_at": at,
		})
	return res.RowsAffected > 0, res.Error
}

// --- Resolution records --------------------------------------------------------

func (s *Store) GetResolutionRecordByCycle(ctx context.Context, cycleID uint64) (*models.ResolutionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ResolutionRecord
	err := s.db.WithContext(ctx).Where("cycle_id = ?", cycleID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListResolutionRecords(ctx context.Context, params repository.ListResolutionRecordsParams) ([]models.ResolutionRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ResolutionRecord{})
	if params.Outcome != nil && strings.TrimSpace(*params.Outcome) != "" {
		query = query.Where("outcome = ?", strings.TrimSpace(*params.Outcome))
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("resolved_at >= ?", *params.Since)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "resolved_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.ResolutionRecord
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// --- helpers -------------------------------------------------------------------

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
