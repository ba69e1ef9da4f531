/*
 *     Copyright 2025 The Dragonfly Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import "time"

// Profile is a public Gravatar profile. Fields outside the public set are
// only filled for requests authenticated with an API key.
type Profile struct {
	Hash                   string            `json:"hash"`
	DisplayName            string            `json:"display_name"`
	ProfileURL             string            `json:"profile_url"`
	AvatarURL              string            `json:"avatar_url"`
	AvatarAltText          string            `json:"avatar_alt_text"`
	Location               string            `json:"location"`
	Description            string            `json:"description"`
	JobTitle               string            `json:"job_title"`
	Company                string            `json:"company"`
	VerifiedAccounts       []VerifiedAccount `json:"verified_accounts"`
	Pronunciation          string            `json:"pronunciation"`
	Pronouns               string            `json:"pronouns"`
	Timezone               string            `json:"timezone,omitempty"`
	Languages              []Language        `json:"languages,omitempty"`
	FirstName              string            `json:"first_name,omitempty"`
	LastName               string            `json:"last_name,omitempty"`
	IsOrganization         bool              `json:"is_organization,omitempty"`
	Links                  []Link            `json:"links,omitempty"`
	Interests              []Interest        `json:"interests,omitempty"`
	Payments               *Payments         `json:"payments,omitempty"`
	ContactInfo            *ContactInfo      `json:"contact_info,omitempty"`
	Gallery                []GalleryImage    `json:"gallery,omitempty"`
	NumberVerifiedAccounts int               `json:"number_verified_accounts,omitempty"`
	LastProfileEdit        *time.Time        `json:"last_profile_edit,omitempty"`
	RegistrationDate       *time.Time        `json:"registration_date,omitempty"`
}

// VerifiedAccount is an external account linked to a profile.
type VerifiedAccount struct {
	ServiceType  string `json:"service_type"`
	ServiceLabel string `json:"service_label"`
	ServiceIcon  string `json:"service_icon"`
	URL          string `json:"url"`
	IsHidden     bool   `json:"is_hidden"`
}

// Language is a language the profile owner speaks.
type Language struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
	Order     int    `json:"order"`
}

// Link is a labelled URL.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type Interest struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Payments lists the ways to pay the profile owner.
type Payments struct {
	Links         []Link         `json:"links"`
	CryptoWallets []CryptoWallet `json:"crypto_wallets"`
}

type CryptoWallet struct {
	Label   string `json:"label"`
	Address string `json:"address"`
}

// ContactInfo is the contact section of a profile.
type ContactInfo struct {
	HomePhone   string `json:"home_phone,omitempty"`
	WorkPhone   string `json:"work_phone,omitempty"`
	CellPhone   string `json:"cell_phone,omitempty"`
	Email       string `json:"email,omitempty"`
	ContactForm string `json:"contact_form,omitempty"`
	Calendar    string `json:"calendar,omitempty"`
}

type GalleryImage struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

// Avatar is an image uploaded to the authenticated user's account.
type Avatar struct {
	ImageID     string `json:"image_id"`
	ImageURL    string `json:"image_url"`
	Rating      string `json:"rating"`
	AltText     string `json:"alt_text"`
	Selected    bool   `json:"selected,omitempty"`
	UpdatedDate string `json:"updated_date"`
}

// associatedResponse is the body of the associated email check.
type associatedResponse struct {
	Associated bool `json:"associated"`
}

// selectAvatarRequest is the body of the avatar selection call.
type selectAvatarRequest struct {
	EmailHash string `json:"email_hash"`
}
