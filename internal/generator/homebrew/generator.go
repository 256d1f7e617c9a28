package homebrew

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ralt/releasetap/internal/descriptor"
	"github.com/ralt/releasetap/internal/generator"
	"github.com/ralt/releasetap/internal/models"
	"github.com/ralt/releasetap/internal/platform"
	"github.com/ralt/releasetap/internal/utils"
	"github.com/sirupsen/logrus"
)

// Generator implements the generator.Generator interface for Homebrew taps
type Generator struct{}

// NewGenerator creates a new Homebrew generator
func NewGenerator() generator.Generator {
	return &Generator{}
}

// Generate writes Formula/{name}.rb for the latest version and
// Formula/{name}@{version}.rb for every older one
func (g *Generator) Generate(ctx context.Context, config *models.GenerateConfig, table *descriptor.Table) error {
	logrus.Info("Generating Homebrew formulas...")

	if err := g.ValidateTable(table); err != nil {
		return err
	}

	formulaDir := filepath.Join(config.OutputDir, "Formula")
	if err := utils.EnsureDir(formulaDir); err != nil {
		return err
	}

	latest := table.Latest()
	for _, version := range table.Versions() {
		if err := ctx.Err(); err != nil {
			return err
		}

		var descriptors []models.Descriptor
		for _, p := range table.Platforms(version) {
			d, err := table.Resolve(version, p)
			if err != nil {
				return err
			}
			descriptors = append(descriptors, *d)
		}

		name := descriptors[0].Name
		fileName := name
		if version != latest {
			fileName = fmt.Sprintf("%s@%s", name, version)
		}

		formula, err := RenderFormula(config, fileName, descriptors)
		if err != nil {
			return fmt.Errorf("failed to render formula for %s: %w", fileName, err)
		}

		formulaPath := filepath.Join(formulaDir, fileName+".rb")
		if err := utils.WriteFile(formulaPath, []byte(formula), 0644); err != nil {
			return fmt.Errorf("failed to write formula: %w", err)
		}

		logrus.Infof("Generated formula for %s %s (%s)", name, version, toClassName(fileName))
	}

	logrus.Infof("Homebrew formulas generated successfully (%d versions)", len(table.Versions()))
	return nil
}

// RenderFormula creates a Ruby formula for the descriptors of one version
func RenderFormula(config *models.GenerateConfig, formulaName string, descriptors []models.Descriptor) (string, error) {
	if len(descriptors) == 0 {
		return "", fmt.Errorf("no descriptors for %s", formulaName)
	}

	first := descriptors[0]
	for _, d := range descriptors[1:] {
		if d.Version != first.Version || d.Name != first.Name {
			return "", fmt.Errorf("formula %s mixes %s and %s", formulaName, first.Identity(), d.Identity())
		}
	}

	desc := config.Description
	if desc == "" {
		desc = fmt.Sprintf("%s binary release", first.Name)
	}
	homepage := config.Homepage
	if homepage == "" {
		homepage = "https://example.com"
	}

	var formula strings.Builder

	formula.WriteString("# typed: false\n")
	formula.WriteString("# frozen_string_literal: true\n\n")
	formula.WriteString("# This file was generated by releasetap. DO NOT EDIT.\n")
	fmt.Fprintf(&formula, "class %s < Formula\n", toClassName(formulaName))
	fmt.Fprintf(&formula, "  desc \"%s\"\n", escape(desc))
	fmt.Fprintf(&formula, "  homepage \"%s\"\n", escape(homepage))
	fmt.Fprintf(&formula, "  version \"%s\"\n", first.Version)

	for _, os := range []string{platform.MacOS, platform.Linux} {
		var group []models.Descriptor
		var siblings []models.Platform
		for _, d := range descriptors {
			if d.Platform.OS == os {
				group = append(group, d)
				siblings = append(siblings, d.Platform)
			}
		}
		if len(group) == 0 {
			continue
		}

		fmt.Fprintf(&formula, "\n  on_%s do\n", os)
		for _, d := range group {
			fmt.Fprintf(&formula, "    if %s\n", cpuCondition(d.Platform, siblings))
			fmt.Fprintf(&formula, "      url \"%s\"\n", d.URL)
			fmt.Fprintf(&formula, "      sha256 \"%s\"\n", d.SHA256)
			formula.WriteString("\n      def install\n")
			fmt.Fprintf(&formula, "        bin.install \"%s\"\n", d.BinaryName())
			formula.WriteString("      end\n")
			formula.WriteString("    end\n")
		}
		formula.WriteString("  end\n")
	}

	formula.WriteString("\n  test do\n")
	fmt.Fprintf(&formula, "    system \"#{bin}/%s -h\"\n", first.BinaryName())
	formula.WriteString("  end\n")
	formula.WriteString("end\n")

	return formula.String(), nil
}

// cpuFamily maps a canonical architecture to Homebrew's Hardware::CPU family
func cpuFamily(arch string) string {
	switch arch {
	case "arm64", "arm":
		return "arm"
	default:
		return "intel"
	}
}

// cpuCondition builds the Hardware::CPU predicate selecting p among its
// siblings on the same operating system
func cpuCondition(p models.Platform, siblings []models.Platform) string {
	family := cpuFamily(p.Arch)
	cond := fmt.Sprintf("Hardware::CPU.%s?", family)

	qualify := p.OS == platform.Linux && family == "arm"
	for _, s := range siblings {
		if s.Arch != p.Arch && cpuFamily(s.Arch) == family {
			qualify = true
		}
	}

	if !qualify {
		return cond
	}
	if p.Bits == 64 {
		return cond + " && Hardware::CPU.is_64_bit?"
	}
	return cond + " && !Hardware::CPU.is_64_bit?"
}

// toClassName converts a formula name to a Ruby class name, following
// Homebrew's rule for versioned formulas (foo@1.2 -> FooAT12)
func toClassName(name string) string {
	base, version, versioned := strings.Cut(name, "@")

	// Replace hyphens and underscores with spaces
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")

	// Title case each word
	words := strings.Fields(base)
	for i, word := range words {
		word = strings.ToLower(word)
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}

	className := strings.Join(words, "")
	if versioned {
		className += "AT" + strings.NewReplacer(".", "", "-", "", "_", "").Replace(version)
	}
	return className
}

func escape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// ValidateTable checks that the table holds descriptors for a single formula
func (g *Generator) ValidateTable(table *descriptor.Table) error {
	if table.Len() == 0 {
		return fmt.Errorf("descriptor table is empty")
	}

	var name string
	for _, d := range table.Descriptors() {
		if name == "" {
			name = d.Name
		} else if d.Name != name {
			return fmt.Errorf("table mixes formulas %s and %s", name, d.Name)
		}
	}
	return nil
}

// GetFormat returns the output format this generator produces
func (g *Generator) GetFormat() string {
	return "homebrew"
}
