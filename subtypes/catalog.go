package subtypes

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reSerial  = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	reModel   = regexp.MustCompile(`^[A-Za-z0-9 ._/-]+$`)
	reMAC     = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}[0-9A-Fa-f]{2}$`)
	reIPv4    = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
	reLabel   = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)
	rePhone   = regexp.MustCompile(`^[0-9+()\-. ]+$`)
	reUUID    = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)
	reSysID   = regexp.MustCompile(`^[0-9a-f]{32}$`)
	reVersion = regexp.MustCompile(`^v?\d+(\.\d+){0,3}([-+][0-9A-Za-z.]+)?$`)
)

func bound(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}

func stringRules() []*Rule {
	return []*Rule{
		{
			ID: "serial-number", Name: "Serial Number", Family: FamilyString, Fix: FixClean,
			String: &StringRule{
				MinLength: 5, MaxLength: 50, Pattern: reSerial,
				TooShort: "Serial number too short ({length} characters, minimum {min})",
				TooLong:  "Serial number too long ({length} characters, maximum {max})",
				Format:   "Serial number may only contain letters, digits, hyphens and underscores",
			},
		},
		{
			ID: "asset-tag", Name: "Asset Tag", Family: FamilyString, Fix: FixClean,
			String: &StringRule{
				MinLength: 3, MaxLength: 40, Pattern: reSerial,
				TooShort: "Asset tag too short ({length} characters, minimum {min})",
				TooLong:  "Asset tag too long ({length} characters, maximum {max})",
				Format:   "Asset tag may only contain letters, digits, hyphens and underscores",
			},
		},
		{
			ID: "model-number", Name: "Model Number", Family: FamilyString, Fix: FixClean,
			String: &StringRule{
				MinLength: 2, MaxLength: 60, Pattern: reModel,
				TooShort: "Model number too short ({length} characters, minimum {min})",
				TooLong:  "Model number too long ({length} characters, maximum {max})",
				Format:   "Model number contains unsupported characters",
			},
		},
		{
			ID: "mac-address", Name: "MAC Address", Family: FamilyString, Fix: FixFormatMAC,
			String: &StringRule{
				MinLength: 17, MaxLength: 17, Pattern: reMAC, Tag: "mac",
				TooShort: "MAC address too short ({length} characters, expected {min} like 00:1A:2B:3C:4D:5E)",
				TooLong:  "MAC address too long ({length} characters, expected {max})",
				Format:   "MAC address must be six hex pairs separated by colons",
			},
		},
		{
			ID: "ip-address-v4", Name: "IPv4 Address", Family: FamilyString, Fix: FixManual,
			String: &StringRule{
				MinLength: 7, MaxLength: 15, Pattern: reIPv4, Semantic: SemanticIPv4Octets,
				TooShort: "IPv4 address too short ({length} characters, minimum {min})",
				TooLong:  "IPv4 address too long ({length} characters, maximum {max})",
				Format:   "IPv4 address must be four dot-separated numbers",
			},
		},
		{
			ID: "ip-address-v6", Name: "IPv6 Address", Family: FamilyString, Fix: FixManual,
			String: &StringRule{
				MinLength: 2, MaxLength: 45, Tag: "ipv6",
				TooShort: "IPv6 address too short ({length} characters, minimum {min})",
				TooLong:  "IPv6 address too long ({length} characters, maximum {max})",
				Format:   "Not a valid IPv6 address",
			},
		},
		{
			ID: "hostname", Name: "Hostname", Family: FamilyString, Fix: FixCleanHostname,
			String: &StringRule{
				MinLength: 1, MaxLength: 63, Pattern: reLabel,
				TooShort: "Hostname is empty",
				TooLong:  "Hostname too long ({length} characters, maximum {max})",
				Format:   "Hostname may only contain letters, digits and inner hyphens",
			},
		},
		{
			ID: "fqdn", Name: "Fully Qualified Domain Name", Family: FamilyString, Fix: FixCleanFQDN,
			String: &StringRule{
				MinLength: 4, MaxLength: 253, Tag: "fqdn",
				TooShort: "FQDN too short ({length} characters, minimum {min})",
				TooLong:  "FQDN too long ({length} characters, maximum {max})",
				Format:   "Not a valid fully qualified domain name",
			},
		},
		{
			ID: "email", Name: "Email Address", Family: FamilyString, Fix: FixManual,
			String: &StringRule{
				MinLength: 6, MaxLength: 254, Tag: "email",
				TooShort: "Email too short ({length} characters, minimum {min})",
				TooLong:  "Email too long ({length} characters, maximum {max})",
				Format:   "Not a valid email address",
			},
		},
		{
			ID: "url", Name: "URL", Family: FamilyString, Fix: FixAddProtocol,
			String: &StringRule{
				MinLength: 4, MaxLength: 2048, Tag: "url",
				TooShort: "URL too short ({length} characters, minimum {min})",
				TooLong:  "URL too long ({length} characters, maximum {max})",
				Format:   "URL must include a scheme such as https://",
			},
		},
		{
			ID: "phone-number", Name: "Phone Number", Family: FamilyString, Fix: FixCleanPhone,
			String: &StringRule{
				MinLength: 7, MaxLength: 20, Pattern: rePhone, Semantic: SemanticPhone,
				TooShort: "Phone number too short ({length} characters, minimum {min})",
				TooLong:  "Phone number too long ({length} characters, maximum {max})",
				Format:   "Phone number may only contain digits, spaces and + - ( )",
			},
		},
		{
			ID: "uuid", Name: "UUID", Family: FamilyString, Fix: FixManual,
			String: &StringRule{
				MinLength: 36, MaxLength: 36, Pattern: reUUID, Semantic: SemanticUUID,
				TooShort: "UUID too short ({length} characters, expected {min})",
				TooLong:  "UUID too long ({length} characters, expected {max})",
				Format:   "UUID must be 8-4-4-4-12 hex digits",
			},
		},
		{
			ID: "sys-id", Name: "ServiceNow sys_id", Family: FamilyString, Fix: FixManual,
			String: &StringRule{
				MinLength: 32, MaxLength: 32, Pattern: reSysID,
				TooShort: "sys_id too short ({length} characters, expected {min})",
				TooLong:  "sys_id too long ({length} characters, expected {max})",
				Format:   "sys_id must be 32 lowercase hex characters",
			},
		},
		{
			ID: "version", Name: "Version", Family: FamilyString, Fix: FixManual,
			String: &StringRule{
				MinLength: 1, MaxLength: 30, Pattern: reVersion,
				TooShort: "Version is empty",
				TooLong:  "Version too long ({length} characters, maximum {max})",
				Format:   "Version must look like 1.2.3",
			},
		},
		{
			ID: "short-text", Name: "Short Text", Family: FamilyString, Fix: FixTruncate,
			String: &StringRule{
				MinLength: 1, MaxLength: 40,
				TooShort: "Text is empty",
				TooLong:  "Text too long ({length} characters, maximum {max})",
			},
		},
		{
			ID: "name-text", Name: "Name", Family: FamilyString, Fix: FixTruncate,
			String: &StringRule{
				MinLength: 2, MaxLength: 100,
				TooShort: "Name too short ({length} characters, minimum {min})",
				TooLong:  "Name too long ({length} characters, maximum {max})",
			},
		},
		{
			ID: "long-text", Name: "Long Text", Family: FamilyString, Fix: FixTruncate,
			String: &StringRule{
				MinLength: 1, MaxLength: 4000,
				TooShort: "Text is empty",
				TooLong:  "Text too long ({length} characters, maximum {max})",
			},
		},
	}
}

func numberRules() []*Rule {
	return []*Rule{
		{ID: "integer", Name: "Integer", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{DecimalPlaces: 0, IntegerOnly: true}},
		{ID: "decimal", Name: "Decimal", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{DecimalPlaces: -1}},
		{ID: "currency", Name: "Currency", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{DecimalPlaces: 2, StripSymbols: true}},
		{ID: "percentage", Name: "Percentage", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{Min: bound(0), Max: bound(100), DecimalPlaces: 2, StripSymbols: true}},
		{ID: "memory-mb", Name: "Memory (MB)", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{Min: bound(0), DecimalPlaces: 0, IntegerOnly: true}},
		{ID: "disk-gb", Name: "Disk Space (GB)", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{Min: bound(0), DecimalPlaces: 2}},
		{ID: "cpu-count", Name: "CPU Count", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{Min: bound(1), Max: bound(1024), DecimalPlaces: 0, IntegerOnly: true}},
		{ID: "port-number", Name: "Port Number", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{Min: bound(0), Max: bound(65535), DecimalPlaces: 0, IntegerOnly: true}},
		{ID: "year", Name: "Year", Family: FamilyNumber, Fix: FixReformat,
			Number: &NumberRule{Min: bound(1900), Max: bound(2100), DecimalPlaces: 0, IntegerOnly: true}},
	}
}

func dateRules() []*Rule {
	return []*Rule{
		{ID: "date-only", Name: "Date", Family: FamilyDate, Fix: FixReformat,
			Date: &DateRule{Layout: "2006-01-02", Display: "YYYY-MM-DD"}},
		{ID: "datetime", Name: "Date & Time", Family: FamilyDate, Fix: FixReformat,
			Date: &DateRule{Layout: "2006-01-02 15:04:05", Display: "YYYY-MM-DD HH:MM:SS"}},
		{ID: "time-only", Name: "Time", Family: FamilyDate, Fix: FixReformat,
			Date: &DateRule{Layout: "15:04:05", Display: "HH:MM:SS"}},
		{ID: "iso8601", Name: "ISO 8601 Timestamp", Family: FamilyDate, Fix: FixReformat,
			Date: &DateRule{Layout: time.RFC3339, Display: "YYYY-MM-DDTHH:MM:SSZ"}},
		{ID: "us-date", Name: "US Date", Family: FamilyDate, Fix: FixReformat,
			Date: &DateRule{Layout: "01/02/2006", Display: "MM/DD/YYYY"}},
		{ID: "eu-date", Name: "European Date", Family: FamilyDate, Fix: FixReformat,
			Date: &DateRule{Layout: "02/01/2006", Display: "DD/MM/YYYY"}},
	}
}

func booleanRules() []*Rule {
	return []*Rule{
		{ID: "boolean-true-false", Name: "True/False", Family: FamilyBoolean, Fix: FixReformat,
			Boolean: &BooleanRule{True: "true", False: "false"}},
		{ID: "boolean-yes-no", Name: "Yes/No", Family: FamilyBoolean, Fix: FixReformat,
			Boolean: &BooleanRule{True: "Yes", False: "No"}},
		{ID: "boolean-y-n", Name: "Y/N", Family: FamilyBoolean, Fix: FixReformat,
			Boolean: &BooleanRule{True: "Y", False: "N"}},
		{ID: "boolean-1-0", Name: "1/0", Family: FamilyBoolean, Fix: FixReformat,
			Boolean: &BooleanRule{True: "1", False: "0"}},
		{ID: "boolean-active-inactive", Name: "Active/Inactive", Family: FamilyBoolean, Fix: FixReformat,
			Boolean: &BooleanRule{True: "Active", False: "Inactive"}},
	}
}

// TrueWords and FalseWords form the broad boolean vocabulary accepted for normalization.
var (
	TrueWords  = []string{"true", "yes", "y", "1", "t", "on", "active", "enabled"}
	FalseWords = []string{"false", "no", "n", "0", "f", "off", "inactive", "disabled"}
)

// DateLayouts are the layouts recognised when no subtype pins one down.
var DateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"01-02-06",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
	"15:04:05",
	"15:04",
}
