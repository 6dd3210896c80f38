// Package student defines the read-only student records served by the backend.
package student

// Summary is a single search hit as returned by /search and /students.
type Summary struct {
	RollNumber  string `json:"rollno"`
	DisplayName string `json:"cname"`
	PhotoURL    string `json:"FULL_PHOTO_URL"`
}

// Profile is the full record returned by /student/{roll}.
type Profile struct {
	RollNumber   string `json:"rollno"`
	DisplayName  string `json:"cname"`
	PhotoURL     string `json:"FULL_PHOTO_URL"`
	SignatureURL string `json:"FULL_SIGN_URL"`

	RegistrationNumber string `json:"regno"`
	FatherName         string `json:"fname"`
	MotherName         string `json:"mname"`
	DateOfBirth        string `json:"dob"`
	Gender             string `json:"gender"`
	Category           string `json:"category"`
	Aadhaar            string `json:"adhaar"`
	Mobile             string `json:"mobile"`
	Email              string `json:"email"`
	Address            string `json:"cadd"`

	College         string `json:"allotedcollege"`
	Honours         string `json:"major"`
	Stream          string `json:"stream"`
	ApplicationDate string `json:"appdt"`
	AdmissionDate   string `json:"admdate"`

	TwelfthBoard      string `json:"iboard"`
	TwelfthYear       Text   `json:"iyear"`
	TwelfthMarks      Text   `json:"iobt"`
	TwelfthPercentage Text   `json:"iprcnt"`
	ObtainedMarks     Text   `json:"intobtmarks"`
	Percentage        Text   `json:"intpercnt"`
}

// Summary returns the card-level view of the profile.
func (p *Profile) Summary() Summary {
	return Summary{
		RollNumber:  p.RollNumber,
		DisplayName: p.DisplayName,
		PhotoURL:    p.PhotoURL,
	}
}
