// Package applepass builds Apple Wallet (.pkpass) archives.
//
// A .pkpass file is a ZIP archive containing a pass.json descriptor,
// optional images, a manifest.json listing the SHA-1 digest of every file,
// and a detached PKCS#7 signature over that manifest produced with a pass
// certificate, its private key, and the Apple WWDR intermediate.
package applepass

import (
	"archive/zip"
	"bytes"
	"crypto"
	"crypto/sha1"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	"github.com/smallstep/pkcs7"
)

// Config holds the signing identity for the builder. Empty certificate
// paths put the builder in unsigned mode, which produces structurally valid
// archives for development; callers must not advertise unsigned passes as
// usable.
type Config struct {
	TeamID           string
	PassTypeID       string
	OrganizationName string
	CertPath         string
	KeyPath          string
	WWDRCertPath     string
}

// Field is one labeled display entry on the pass.
type Field struct {
	Key       string `json:"key"`
	Label     string `json:"label,omitempty"`
	Value     string `json:"value"`
	DateStyle string `json:"dateStyle,omitempty"`
	TimeStyle string `json:"timeStyle,omitempty"`
}

// PassInfo describes one attendee's pass.
type PassInfo struct {
	SerialNumber    string
	AttendeeName    string
	EventName       string
	EventDate       time.Time
	CardURL         string
	AuxiliaryFields []Field
	Logo            []byte
	Icon            []byte
	Strip           []byte
}

type barcode struct {
	Message         string `json:"message"`
	Format          string `json:"format"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

type eventTicket struct {
	HeaderFields    []Field `json:"headerFields"`
	PrimaryFields   []Field `json:"primaryFields"`
	SecondaryFields []Field `json:"secondaryFields"`
	AuxiliaryFields []Field `json:"auxiliaryFields"`
	BackFields      []Field `json:"backFields"`
}

type passDescriptor struct {
	FormatVersion      int         `json:"formatVersion"`
	PassTypeIdentifier string      `json:"passTypeIdentifier"`
	SerialNumber       string      `json:"serialNumber"`
	TeamIdentifier     string      `json:"teamIdentifier"`
	OrganizationName   string      `json:"organizationName"`
	Description        string      `json:"description"`
	LogoText           string      `json:"logoText,omitempty"`
	BackgroundColor    string      `json:"backgroundColor,omitempty"`
	ForegroundColor    string      `json:"foregroundColor,omitempty"`
	LabelColor         string      `json:"labelColor,omitempty"`
	Barcode            barcode     `json:"barcode"`
	EventTicket        eventTicket `json:"eventTicket"`
}

// Builder assembles and signs .pkpass archives.
type Builder struct {
	config Config
	cert   *x509.Certificate
	key    crypto.PrivateKey
	wwdr   *x509.Certificate
}

// NewBuilder loads the signing material named in config. When any of the
// three certificate paths is empty the builder operates unsigned; when all
// are set, failure to load or parse them is an error.
func NewBuilder(config Config) (*Builder, error) {
	b := &Builder{config: config}
	if config.CertPath == "" || config.KeyPath == "" || config.WWDRCertPath == "" {
		return b, nil
	}

	cert, err := loadCertificate(config.CertPath)
	if err != nil {
		return nil, fmt.Errorf("load pass certificate: %w", err)
	}
	key, err := loadPrivateKey(config.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load pass key: %w", err)
	}
	wwdr, err := loadCertificate(config.WWDRCertPath)
	if err != nil {
		return nil, fmt.Errorf("load WWDR certificate: %w", err)
	}
	b.cert = cert
	b.key = key
	b.wwdr = wwdr
	return b, nil
}

// SigningConfigured reports whether the builder can produce signed,
// device-usable archives.
func (b *Builder) SigningConfigured() bool {
	return b.cert != nil && b.key != nil && b.wwdr != nil
}

// CreatePass builds the archive for the given pass. Unsigned builders emit
// the same structure without the signature entry.
func (b *Builder) CreatePass(info PassInfo) ([]byte, error) {
	descriptor := passDescriptor{
		FormatVersion:      1,
		PassTypeIdentifier: b.config.PassTypeID,
		SerialNumber:       info.SerialNumber,
		TeamIdentifier:     b.config.TeamID,
		OrganizationName:   b.config.OrganizationName,
		Description:        fmt.Sprintf("%s - Digital Contact Card", info.EventName),
		LogoText:           info.EventName,
		BackgroundColor:    "#1E40AF",
		ForegroundColor:    "#FFFFFF",
		LabelColor:         "#E5E7EB",
		Barcode: barcode{
			Message:         info.CardURL,
			Format:          "PKBarcodeFormatQR",
			MessageEncoding: "iso-8859-1",
			AltText:         info.AttendeeName,
		},
		EventTicket: eventTicket{
			HeaderFields: []Field{
				{Key: "event", Label: "EVENT", Value: info.EventName},
			},
			PrimaryFields: []Field{
				{Key: "attendee", Label: "ATTENDEE", Value: info.AttendeeName},
			},
			SecondaryFields: []Field{
				{Key: "date", Label: "DATE", Value: info.EventDate.Format("January 2, 2006"), DateStyle: "PKDateStyleMedium"},
				{Key: "time", Label: "TIME", Value: info.EventDate.Format("3:04 PM"), TimeStyle: "PKDateStyleShort"},
			},
			AuxiliaryFields: append([]Field{}, info.AuxiliaryFields...),
			BackFields: []Field{
				{Key: "contact_card", Label: "Digital Contact Card", Value: info.CardURL},
			},
		},
	}

	passJSON, err := json.MarshalIndent(descriptor, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal pass.json: %w", err)
	}

	files := map[string][]byte{"pass.json": passJSON}
	if info.Logo != nil {
		files["logo.png"] = info.Logo
		files["logo@2x.png"] = info.Logo
	}
	if info.Icon != nil {
		files["icon.png"] = info.Icon
		files["icon@2x.png"] = info.Icon
	}
	if info.Strip != nil {
		files["strip.png"] = info.Strip
		files["strip@2x.png"] = info.Strip
	}

	manifest := make(map[string]string, len(files))
	for name, data := range files {
		sum := sha1.Sum(data)
		manifest[name] = hex.EncodeToString(sum[:])
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest.json: %w", err)
	}
	files["manifest.json"] = manifestJSON

	if b.SigningConfigured() {
		signature, err := b.signManifest(manifestJSON)
		if err != nil {
			return nil, fmt.Errorf("sign manifest: %w", err)
		}
		files["signature"] = signature
	}

	return writeArchive(files)
}

// signManifest produces the detached PKCS#7 signature over manifest.json,
// embedding the WWDR intermediate so devices can verify the chain.
func (b *Builder) signManifest(manifestJSON []byte) ([]byte, error) {
	signed, err := pkcs7.NewSignedData(manifestJSON)
	if err != nil {
		return nil, err
	}
	signed.AddCertificate(b.wwdr)
	if err := signed.AddSigner(b.cert, b.key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	signed.Detach()
	return signed.Finish()
}

func writeArchive(files map[string][]byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range files {
		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("create archive entry %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("write archive entry %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

func loadCertificate(path string) (*x509.Certificate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	return x509.ParseCertificate(block.Bytes)
}

func loadPrivateKey(path string) (crypto.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}
	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unsupported private key format in %s", path)
}
