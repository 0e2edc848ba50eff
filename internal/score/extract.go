package score

import "riskcalc/internal/risk"

// Extractor flattens a typed input into the features a model's table reads.
type Extractor func(in *risk.RiskInput) Features

// Extractors returns the feature extractor of every supported model.
func Extractors() map[risk.ModelID]Extractor {
	return map[risk.ModelID]Extractor{
		risk.ModelGail:  gailFeatures,
		risk.ModelBCSC:  bcscFeatures,
		risk.ModelBRCA:  brcaFeatures,
		risk.ModelQRISK: qriskFeatures,
	}
}

// breastFeatures covers what the Gail and BCSC tables share.
func breastFeatures(in *risk.RiskInput) Features {
	fs := NewFeatures()
	fs.SetNumber("age", float64(in.Personal.Age))
	fs.SetLabel("race", string(in.Personal.Race))

	if f := in.Family; f != nil {
		fs.SetNumber("relatives", float64(f.FirstDegreeRelatives))
	}

	if m := in.Medical; m != nil {
		if m.MenarcheAge != nil {
			fs.SetNumber("menarche_age", float64(*m.MenarcheAge))
		}
		if m.FirstBirthAge != nil {
			fs.SetNumber("first_birth", float64(*m.FirstBirthAge))
		} else {
			fs.SetLabel("first_birth", "nulliparous")
		}
		fs.SetNumber("biopsies", float64(m.BiopsyCount))
		// atypia is only found on biopsy
		fs.Flag("atypia", m.BiopsyCount > 0 && m.AtypicalHyperplasia)
		fs.Flag("lcis", m.LCIS)
		if m.Density != "" {
			fs.SetLabel("density", string(m.Density))
		}
		fs.Flag("hormone_therapy", m.HormoneTherapy)
	}
	return fs
}

func gailFeatures(in *risk.RiskInput) Features {
	return breastFeatures(in)
}

func bcscFeatures(in *risk.RiskInput) Features {
	return breastFeatures(in)
}

func brcaFeatures(in *risk.RiskInput) Features {
	fs := NewFeatures()
	fs.SetNumber("age", float64(in.Personal.Age))
	fs.SetLabel("race", string(in.Personal.Race))

	mutation := "none"
	brca1, brca2 := in.MutationPositive("BRCA1"), in.MutationPositive("BRCA2")
	switch {
	case brca1 && brca2:
		mutation = "both"
	case brca1:
		mutation = "brca1"
	case brca2:
		mutation = "brca2"
	}
	fs.SetLabel("mutation", string(in.Personal.Sex)+"_"+mutation)
	fs.SetLabel("mutation_reference", string(in.Personal.Sex)+"_none")

	if f := in.Family; f != nil {
		fs.Flag("family_breast", f.BreastCancer)
		fs.Flag("family_ovarian", f.OvarianCancer)
	}
	return fs
}

func qriskFeatures(in *risk.RiskInput) Features {
	fs := NewFeatures()
	fs.SetNumber("age", float64(in.Personal.Age))
	fs.SetLabel("sex", string(in.Personal.Sex))
	fs.SetLabel("race", string(in.Personal.Race))

	if bmi, ok := in.BMI(); ok {
		fs.SetNumber("bmi", bmi)
	}
	if l := in.Lifestyle; l != nil && l.Smoking != "" {
		fs.SetLabel("smoking", string(l.Smoking))
	}
	if f := in.Family; f != nil {
		fs.Flag("family_cvd", f.CardiovascularEvent)
	}
	if c := in.Cardio; c != nil {
		fs.Flag("diabetes", c.Diabetes)
		fs.Flag("prior_cardiac_event", c.PriorCardiacEvent)
		fs.Flag("chronic_kidney_disease", c.ChronicKidneyDisease)
		fs.Flag("atrial_fibrillation", c.AtrialFibrillation)
		fs.Flag("rheumatoid_arthritis", c.RheumatoidArthritis)
		fs.Flag("bp_treatment", c.BPTreatment)
		if c.CholesterolRatio != nil {
			fs.SetNumber("cholesterol_ratio", *c.CholesterolRatio)
		}
		if c.SystolicBP != nil {
			fs.SetNumber("systolic_bp", *c.SystolicBP)
		}
	}
	return fs
}
