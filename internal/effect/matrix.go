package effect

import "math"

// Luminance coefficients used by the saturate and hue-rotate matrices.
const (
	lumR = 0.213
	lumG = 0.715
	lumB = 0.072
)

func grayscaleMatrix(amount float64) Matrix {
	a := 1 - amount
	return Matrix{
		0.2126 + 0.7874*a, 0.7152 - 0.7152*a, 0.0722 - 0.0722*a, 0, 0,
		0.2126 - 0.2126*a, 0.7152 + 0.2848*a, 0.0722 - 0.0722*a, 0, 0,
		0.2126 - 0.2126*a, 0.7152 - 0.7152*a, 0.0722 + 0.9278*a, 0, 0,
		0, 0, 0, 1, 0,
	}
}

func sepiaMatrix(amount float64) Matrix {
	a := 1 - amount
	return Matrix{
		0.393 + 0.607*a, 0.769 - 0.769*a, 0.189 - 0.189*a, 0, 0,
		0.349 - 0.349*a, 0.686 + 0.314*a, 0.168 - 0.168*a, 0, 0,
		0.272 - 0.272*a, 0.534 - 0.534*a, 0.131 + 0.869*a, 0, 0,
		0, 0, 0, 1, 0,
	}
}

func saturateMatrix(s float64) Matrix {
	return Matrix{
		lumR + (1-lumR)*s, lumG - lumG*s, lumB - lumB*s, 0, 0,
		lumR - lumR*s, lumG + (1-lumG)*s, lumB - lumB*s, 0, 0,
		lumR - lumR*s, lumG - lumG*s, lumB + (1-lumB)*s, 0, 0,
		0, 0, 0, 1, 0,
	}
}

func hueRotateMatrix(degrees float64) Matrix {
	rad := degrees * math.Pi / 180
	c, s := math.Cos(rad), math.Sin(rad)
	return Matrix{
		lumR + c*(1-lumR) - s*lumR, lumG - c*lumG - s*lumG, lumB - c*lumB + s*(1-lumB), 0, 0,
		lumR - c*lumR + s*0.143, lumG + c*(1-lumG) + s*0.140, lumB - c*lumB - s*0.283, 0, 0,
		lumR - c*lumR - s*(1-lumR), lumG - c*lumG + s*lumG, lumB + c*(1-lumB) + s*lumB, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// linearMatrix scales R, G and B by slope and adds intercept.
func linearMatrix(slope, intercept float64) Matrix {
	return Matrix{
		slope, 0, 0, 0, intercept,
		0, slope, 0, 0, intercept,
		0, 0, slope, 0, intercept,
		0, 0, 0, 1, 0,
	}
}

func brightnessMatrix(amount float64) Matrix {
	return linearMatrix(amount, 0)
}

func contrastMatrix(amount float64) Matrix {
	return linearMatrix(amount, 0.5-0.5*amount)
}

func invertMatrix(amount float64) Matrix {
	return linearMatrix(1-2*amount, amount)
}

func opacityMatrix(amount float64) Matrix {
	return Matrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, amount, 0,
	}
}
