// Package campus talks to the campus card-services endpoint that exposes
// per-room electricity balances. The upstream is a single form-POST URL
// multiplexing query functions by name; responses are JSON with the balance
// embedded in a human-readable message string.
package campus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"dorm-electricity/internal/cache"
	"dorm-electricity/internal/model"
)

const (
	queryPath        = "/web/Common/Tsm.html"
	funcRoomBalance  = "synjones.onecard.query.elec.roominfo"
	funcBuildingList = "synjones.onecard.query.elec.building"

	// The upstream requires an account field but does not check it against
	// the queried room.
	accountPlaceholder = "000001"
)

var balancePattern = regexp.MustCompile(`(\d+(\.\d+)?)`)

// CampusInfo is one queryable campus: the display name users type, the
// upstream area id, and the area label the upstream expects verbatim.
type CampusInfo struct {
	Name string
	ID   string
	Area string
}

// Building is one dormitory building within a campus.
type Building struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Client queries the campus balance API. The building directory is cached per
// campus since it effectively never changes within a day.
type Client struct {
	BaseURL string
	Client  *http.Client

	campuses map[string]CampusInfo
	order    []string
	cache    *cache.Cache
	log      *logrus.Entry
}

// NewClient builds a client for the given campuses, keeping their listed
// order for user-facing output.
func NewClient(baseURL string, campuses []CampusInfo, c *cache.Cache, log *logrus.Logger) *Client {
	byName := make(map[string]CampusInfo, len(campuses))
	order := make([]string, 0, len(campuses))
	for _, info := range campuses {
		if info.Area == "" {
			info.Area = info.Name
		}
		byName[info.Name] = info
		order = append(order, info.Name)
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: 15 * time.Second,
		},
		campuses: byName,
		order:    order,
		cache:    c,
		log:      log.WithField("component", "campus"),
	}
}

// CampusNames returns the configured campus names in listed order.
func (c *Client) CampusNames() []string {
	return append([]string(nil), c.order...)
}

// Campus resolves a campus display name.
func (c *Client) Campus(name string) (CampusInfo, error) {
	info, ok := c.campuses[name]
	if !ok {
		return CampusInfo{}, &Error{
			Kind:    ErrNotFound,
			Message: fmt.Sprintf("unknown campus %q, available: %s", name, strings.Join(c.order, ", ")),
		}
	}
	return info, nil
}

// Buildings returns the building directory for a campus, sorted by the
// upstream's numeric building id.
func (c *Client) Buildings(ctx context.Context, campusName string) ([]Building, error) {
	info, err := c.Campus(campusName)
	if err != nil {
		return nil, err
	}

	cacheKey := "campus:buildings:" + info.ID
	var buildings []Building
	if c.cache != nil && c.cache.Get(ctx, cacheKey, &buildings) {
		return buildings, nil
	}

	payload := map[string]any{
		"query_elec_building": map[string]any{
			"aid":     info.ID,
			"account": accountPlaceholder,
			"area":    map[string]any{"area": info.Area, "areaname": info.Area},
		},
	}

	var resp struct {
		QueryElecBuilding struct {
			ErrorCode   string `json:"error"`
			ErrMsg      string `json:"errmsg"`
			BuildingTab []struct {
				Building   string `json:"building"`
				BuildingID string `json:"buildingid"`
			} `json:"buildingtab"`
		} `json:"query_elec_building"`
	}
	if err := c.post(ctx, funcBuildingList, payload, &resp); err != nil {
		return nil, err
	}

	for _, b := range resp.QueryElecBuilding.BuildingTab {
		buildings = append(buildings, Building{Name: b.Building, ID: b.BuildingID})
	}
	if len(buildings) == 0 {
		return nil, &Error{
			Kind:    ErrParse,
			Message: fmt.Sprintf("no buildings returned for campus %s", campusName),
		}
	}

	sort.Slice(buildings, func(i, j int) bool {
		a, _ := strconv.Atoi(buildings[i].ID)
		b, _ := strconv.Atoi(buildings[j].ID)
		return a < b
	})

	if c.cache != nil {
		c.cache.Set(ctx, cacheKey, buildings)
	}
	c.log.WithFields(logrus.Fields{
		"campus":    campusName,
		"buildings": len(buildings),
	}).Info("building directory fetched")
	return buildings, nil
}

// ResolveBuilding validates a building name against the campus directory.
func (c *Client) ResolveBuilding(ctx context.Context, campusName, buildingName string) (Building, error) {
	buildings, err := c.Buildings(ctx, campusName)
	if err != nil {
		return Building{}, err
	}
	for _, b := range buildings {
		if b.Name == buildingName {
			return b, nil
		}
	}
	return Building{}, &Error{
		Kind:    ErrNotFound,
		Message: fmt.Sprintf("unknown building %q in campus %s", buildingName, campusName),
	}
}

// FetchReading queries the current balance for one room. The returned Reading
// is stamped with the current UTC time; the upstream does not report a
// measurement time.
func (c *Client) FetchReading(ctx context.Context, key model.RoomKey) (model.Reading, error) {
	info, err := c.Campus(key.Campus)
	if err != nil {
		return model.Reading{}, err
	}
	building, err := c.ResolveBuilding(ctx, key.Campus, key.Building)
	if err != nil {
		return model.Reading{}, err
	}

	payload := map[string]any{
		"query_elec_roominfo": map[string]any{
			"aid":      info.ID,
			"account":  accountPlaceholder,
			"room":     map[string]any{"roomid": key.Room, "room": key.Room},
			"floor":    map[string]any{"floorid": "", "floor": ""},
			"area":     map[string]any{"area": info.Area, "areaname": info.Area},
			"building": map[string]any{"buildingid": building.ID, "building": ""},
		},
	}

	var resp struct {
		QueryElecRoomInfo struct {
			ErrorCode string `json:"error"`
			ErrMsg    string `json:"errmsg"`
		} `json:"query_elec_roominfo"`
	}
	if err := c.post(ctx, funcRoomBalance, payload, &resp); err != nil {
		return model.Reading{}, err
	}

	roomInfo := resp.QueryElecRoomInfo
	if roomInfo.ErrorCode != "" && roomInfo.ErrorCode != "0" {
		return model.Reading{}, &Error{
			Kind:    ErrNotFound,
			Message: fmt.Sprintf("room query rejected: %s", roomInfo.ErrMsg),
		}
	}
	if roomInfo.ErrMsg == "" {
		return model.Reading{}, &Error{Kind: ErrParse, Message: "upstream returned no balance message"}
	}

	match := balancePattern.FindString(roomInfo.ErrMsg)
	if match == "" {
		return model.Reading{}, &Error{
			Kind:    ErrParse,
			Message: fmt.Sprintf("no balance value in message %q", roomInfo.ErrMsg),
		}
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return model.Reading{}, &Error{Kind: ErrParse, Message: "malformed balance value", Err: err}
	}

	return model.Reading{Time: time.Now().UTC(), Value: value}, nil
}

// post sends one multiplexed query to the upstream and decodes the response.
func (c *Client) post(ctx context.Context, funname string, jsondata map[string]any, dest any) error {
	raw, err := json.Marshal(jsondata)
	if err != nil {
		return &Error{Kind: ErrParse, Message: "encode request", Err: err}
	}

	form := url.Values{}
	form.Set("jsondata", string(raw))
	form.Set("funname", funname)
	form.Set("json", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+queryPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return &Error{Kind: ErrNetwork, Message: "build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.Client.Do(req)
	if err != nil {
		return &Error{Kind: ErrNetwork, Message: "campus api unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Error{
			Kind:    ErrNetwork,
			Message: fmt.Sprintf("campus api returned status %d", resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return &Error{Kind: ErrParse, Message: "decode response", Err: err}
	}
	return nil
}
