package arkhamdb

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	sserrors "github.com/matzehuels/sheetslicer/pkg/errors"
)

// Card is one card record. It is immutable once fetched and identified by Code.
type Card struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Subname     string `json:"subname,omitempty"`
	SetName     string `json:"set_name"`
	SetCode     string `json:"set_code,omitempty"`
	Faction     string `json:"faction"`
	FactionCode string `json:"faction_code,omitempty"`
	Type        string `json:"type"`
	TypeCode    string `json:"type_code,omitempty"`
	Traits      string `json:"traits,omitempty"`
	Text        string `json:"text,omitempty"`
	Illustrator string `json:"illustrator,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	IsEncounter bool   `json:"is_encounter"`
}

// DisplayName returns "Name: Subname", or Name when there is no subname.
func (c Card) DisplayName() string {
	if c.Subname == "" {
		return c.Name
	}
	return c.Name + ": " + c.Subname
}

// apiCard mirrors the subset of the ArkhamDB card object the client uses.
type apiCard struct {
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	Subname           string          `json:"subname"`
	PackName          string          `json:"pack_name"`
	PackCode          string          `json:"pack_code"`
	FactionName       string          `json:"faction_name"`
	FactionCode       string          `json:"faction_code"`
	TypeName          string          `json:"type_name"`
	TypeCode          string          `json:"type_code"`
	Traits            string          `json:"traits"`
	Text              string          `json:"text"`
	Illustrator       string          `json:"illustrator"`
	ImageSrc          string          `json:"imagesrc"`
	EncounterCode     json.RawMessage `json:"encounter_code"`
	EncounterPosition json.RawMessage `json:"encounter_position"`
}

var (
	encounterFactions = []string{"mythos", "neutral"}
	encounterTypes    = []string{"enemy", "treachery", "location", "agenda", "act", "scenario"}
)

// isEncounter reports whether the record belongs to an encounter set: a
// mythos or neutral card of an encounter type, or any card that carries an
// encounter code or position.
func (a apiCard) isEncounter() bool {
	if slices.Contains(encounterFactions, a.FactionCode) && slices.Contains(encounterTypes, a.TypeCode) {
		return true
	}
	return present(a.EncounterCode) || present(a.EncounterPosition)
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func (a apiCard) card(imageBase string) Card {
	c := Card{
		Code:        a.Code,
		Name:        a.Name,
		Subname:     a.Subname,
		SetName:     a.PackName,
		SetCode:     a.PackCode,
		Faction:     a.FactionName,
		FactionCode: a.FactionCode,
		Type:        a.TypeName,
		TypeCode:    a.TypeCode,
		Traits:      a.Traits,
		Text:        a.Text,
		Illustrator: a.Illustrator,
		IsEncounter: a.isEncounter(),
	}
	if a.ImageSrc != "" {
		c.ImageURL = strings.TrimSuffix(imageBase, "/") + a.ImageSrc
	}
	return c
}

// decodeCard parses one record. A record without a code or a name is malformed.
func decodeCard(raw json.RawMessage, imageBase string) (Card, error) {
	var a apiCard
	if err := json.Unmarshal(raw, &a); err != nil {
		return Card{}, sserrors.Parse(err, "decode card")
	}
	if a.Code == "" || a.Name == "" {
		return Card{}, sserrors.Parse(nil, "card record without code or name")
	}
	return a.card(imageBase), nil
}
