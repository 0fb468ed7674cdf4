/*
 * trajplot.go, part of gotraj.
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 * goTraj is developed at the Universidad de Santiago de Chile
 * (USACH)
 *
 */

//Package trajplot plots per-frame scalars from a trajectory session,
//like distances or gyration radii, against simulation time.
package trajplot

import (
	"fmt"

	traj "github.com/rmera/gotraj"
	v3 "github.com/rmera/gotraj/v3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

//Series runs f on every frame of the session, in order, and returns
//the per-frame values of f paired with the frames' times. The frame
//borrow is released before f's result is collected, so f must copy
//whatever coordinates it wants to keep.
func Series(S *traj.Session, f func(traj.Header, *v3.Matrix) float64) (times, data []float64, err error) {
	n := S.NFrames()
	times = make([]float64, 0, n)
	data = make([]float64, 0, n)
	for i := 0; i < n; i++ {
		lock, err := S.Frame(i)
		if err != nil {
			return nil, nil, err
		}
		times = append(times, lock.Header().Time)
		data = append(data, f(lock.Header(), lock.Coords()))
		lock.Release()
	}
	return times, data, nil
}

//Timeline plots data against times as a line and saves it as
//plotname.png. Both slices must have the same length.
func Timeline(times, data []float64, title, ylabel, plotname string) error {
	if len(times) != len(data) {
		return fmt.Errorf("trajplot: %d times but %d values", len(times), len(data))
	}
	pts := make(plotter.XYs, len(data))
	for i := range data {
		pts[i].X = times[i]
		pts[i].Y = data[i]
	}
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)
	filename := fmt.Sprintf("%s.png", plotname)
	if err := p.Save(15*vg.Centimeter, 10*vg.Centimeter, filename); err != nil {
		return err
	}
	return nil
}
