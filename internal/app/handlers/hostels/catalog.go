package hostels

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"hlopg/internal/app/dto"
	handlersupport "hlopg/internal/app/handlers/support"
	"hlopg/internal/app/queries"
	"hlopg/internal/app/uow"
	domainfoodmenu "hlopg/internal/domain/foodmenu"
	domainhostels "hlopg/internal/domain/hostels"
)

const (
	cityHostelsKey  = "hostels.city"
	hostelDetailKey = "hostels.detail"
	foodMenuKey     = "hostels.food_menu"
)

// CityCache keeps the unfiltered hostel list of a city.
type CityCache interface {
	Get(ctx context.Context, city string) ([]*domainhostels.Hostel, bool, error)
	Set(ctx context.Context, city string, items []*domainhostels.Hostel) error
}

type CityHostelsQuery struct {
	City   string `validate:"required"`
	Area   string
	Gender string
}

func (q CityHostelsQuery) Key() string { return cityHostelsKey }

type CityHostelsHandler struct {
	UoWFactory uow.UoWFactory
	Cache      CityCache
	Logger     *slog.Logger
}

func (h *CityHostelsHandler) Handle(ctx context.Context, q CityHostelsQuery) (dto.CityHostels, error) {
	city, err := domainhostels.NormalizeCity(q.City)
	if err != nil {
		return dto.CityHostels{}, err
	}
	all, err := h.cityHostels(ctx, city)
	if err != nil {
		return dto.CityHostels{}, err
	}
	params := domainhostels.SearchParams{City: city, Area: q.Area, Gender: q.Gender}
	return dto.MapCityHostels(city, all, domainhostels.Filter(all, params)), nil
}

func (h *CityHostelsHandler) cityHostels(ctx context.Context, city string) ([]*domainhostels.Hostel, error) {
	if h.Cache != nil {
		items, ok, err := h.Cache.Get(ctx, city)
		if err == nil && ok {
			return items, nil
		}
		if err != nil && h.Logger != nil {
			h.Logger.Warn("city cache read failed", "city", city, "error", err)
		}
	}
	unit, execCtx, release, err := handlersupport.ReadUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	items, err := unit.Hostels().Search(execCtx, domainhostels.SearchParams{City: city})
	if err != nil {
		return nil, err
	}
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, city, items); err != nil && h.Logger != nil {
			h.Logger.Warn("city cache write failed", "city", city, "error", err)
		}
	}
	return items, nil
}

type HostelDetailQuery struct {
	HostelID string `validate:"required"`
}

func (q HostelDetailQuery) Key() string { return hostelDetailKey }

type HostelDetailHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *HostelDetailHandler) Handle(ctx context.Context, q HostelDetailQuery) (dto.HostelDetail, error) {
	unit, execCtx, release, err := handlersupport.ReadUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.HostelDetail{}, err
	}
	defer release()
	hostel, err := unit.Hostels().ByID(execCtx, domainhostels.HostelID(strings.TrimSpace(q.HostelID)))
	if err != nil {
		return dto.HostelDetail{}, err
	}
	return dto.MapHostelDetail(hostel), nil
}

type FoodMenuQuery struct {
	HostelID string `validate:"required"`
}

func (q FoodMenuQuery) Key() string { return foodMenuKey }

type FoodMenuHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns an empty week when the hostel exists but has not published a menu.
func (h *FoodMenuHandler) Handle(ctx context.Context, q FoodMenuQuery) (dto.FoodMenu, error) {
	unit, execCtx, release, err := handlersupport.ReadUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.FoodMenu{}, err
	}
	defer release()
	id := domainhostels.HostelID(strings.TrimSpace(q.HostelID))
	if _, err := unit.Hostels().ByID(execCtx, id); err != nil {
		return dto.FoodMenu{}, err
	}
	menu, err := unit.FoodMenus().ByHostel(execCtx, id)
	if errors.Is(err, domainfoodmenu.ErrNotFound) {
		menu = &domainfoodmenu.Menu{HostelID: id}
	} else if err != nil {
		return dto.FoodMenu{}, err
	}
	return dto.MapFoodMenu(menu), nil
}

var (
	_ queries.Handler[CityHostelsQuery, dto.CityHostels]   = (*CityHostelsHandler)(nil)
	_ queries.Handler[HostelDetailQuery, dto.HostelDetail] = (*HostelDetailHandler)(nil)
	_ queries.Handler[FoodMenuQuery, dto.FoodMenu]         = (*FoodMenuHandler)(nil)
)
